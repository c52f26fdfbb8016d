package arch

// aarch64GPRs mirrors the teacher's arm64Registers table (reg.go), trimmed
// to x0-x28 (spec §3: "{x, w}" views only — no quad/double/word/low on
// this architecture). x29 (frame pointer) and x30 (link register) are not
// in the table, so the model never draws them; the schema decoder relies
// on this when it uses x30 as a scratch key register.
var aarch64GPRs = []Register{
	{X: "x0", W: "w0", Encoding: 0},
	{X: "x1", W: "w1", Encoding: 1},
	{X: "x2", W: "w2", Encoding: 2},
	{X: "x3", W: "w3", Encoding: 3},
	{X: "x4", W: "w4", Encoding: 4},
	{X: "x5", W: "w5", Encoding: 5},
	{X: "x6", W: "w6", Encoding: 6},
	{X: "x7", W: "w7", Encoding: 7},
	{X: "x8", W: "w8", Encoding: 8},
	{X: "x9", W: "w9", Encoding: 9},
	{X: "x10", W: "w10", Encoding: 10},
	{X: "x11", W: "w11", Encoding: 11},
	{X: "x12", W: "w12", Encoding: 12},
	{X: "x13", W: "w13", Encoding: 13},
	{X: "x14", W: "w14", Encoding: 14},
	{X: "x15", W: "w15", Encoding: 15},
	{X: "x16", W: "w16", Encoding: 16},
	{X: "x17", W: "w17", Encoding: 17},
	{X: "x18", W: "w18", Encoding: 18},
	{X: "x19", W: "w19", Encoding: 19},
	{X: "x20", W: "w20", Encoding: 20},
	{X: "x21", W: "w21", Encoding: 21},
	{X: "x22", W: "w22", Encoding: 22},
	{X: "x23", W: "w23", Encoding: 23},
	{X: "x24", W: "w24", Encoding: 24},
	{X: "x25", W: "w25", Encoding: 25},
	{X: "x26", W: "w26", Encoding: 26},
	{X: "x27", W: "w27", Encoding: 27},
	{X: "x28", W: "w28", Encoding: 28},
}

// X2 is the fixed counter register the SGN decoder stub reserves on
// AArch64 (spec §4.F: "a fixed x2 on AArch64").
var X2 = aarch64GPRs[2]

// X3 is the fixed scratch register the SGN decoder stub uses to hold the
// byte currently being transformed (the schema decoder uses w2 for its
// word).
var X3 = aarch64GPRs[3]
