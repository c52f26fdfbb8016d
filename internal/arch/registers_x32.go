package arch

// x32GPRs is the 32-bit-mode subset of the same physical register file.
// Quad is set equal to Double (there is no 64-bit view in 32-bit mode) so
// Register.Equal's "quad identifiers match" rule degrades cleanly to
// comparing the 32-bit name.
var x32GPRs = []Register{
	{Quad: "eax", Double: "eax", Word: "ax", Low: "al", Encoding: 0},
	{Quad: "ecx", Double: "ecx", Word: "cx", Low: "cl", Encoding: 1},
	{Quad: "edx", Double: "edx", Word: "dx", Low: "dl", Encoding: 2},
	{Quad: "ebx", Double: "ebx", Word: "bx", Low: "bl", Encoding: 3},
	{Quad: "esp", Double: "esp", Word: "sp", Low: "ah", Encoding: 4},
	{Quad: "ebp", Double: "ebp", Word: "bp", Low: "ch", Encoding: 5},
	{Quad: "esi", Double: "esi", Word: "si", Low: "dh", Encoding: 6},
	{Quad: "edi", Double: "edi", Word: "di", Low: "bh", Encoding: 7},
}

// ECX is the hard-wired counter register on x86-32, the 32-bit-mode
// analogue of x64's RCX (spec §4.F).
var ECX = x32GPRs[1]

// ESP32 must never be drawn as the x86-32 schema decoder's pointer
// register, the 32-bit-mode analogue of x64's RSP.
var ESP32 = x32GPRs[4]
