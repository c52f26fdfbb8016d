package arch

// x64GPRs mirrors the teacher's x86_64Registers table (reg.go), widened
// with the Word/Low 16/8-bit views spec §3 requires for x86
// ("{quad, double, word, low}") which the teacher's own table omitted.
var x64GPRs = []Register{
	{Quad: "rax", Double: "eax", Word: "ax", Low: "al", Encoding: 0},
	{Quad: "rcx", Double: "ecx", Word: "cx", Low: "cl", Encoding: 1},
	{Quad: "rdx", Double: "edx", Word: "dx", Low: "dl", Encoding: 2},
	{Quad: "rbx", Double: "ebx", Word: "bx", Low: "bl", Encoding: 3},
	{Quad: "rsp", Double: "esp", Word: "sp", Low: "spl", Encoding: 4},
	{Quad: "rbp", Double: "ebp", Word: "bp", Low: "bpl", Encoding: 5},
	{Quad: "rsi", Double: "esi", Word: "si", Low: "sil", Encoding: 6},
	{Quad: "rdi", Double: "edi", Word: "di", Low: "dil", Encoding: 7},
	{Quad: "r8", Double: "r8d", Word: "r8w", Low: "r8b", Encoding: 8},
	{Quad: "r9", Double: "r9d", Word: "r9w", Low: "r9b", Encoding: 9},
	{Quad: "r10", Double: "r10d", Word: "r10w", Low: "r10b", Encoding: 10},
	{Quad: "r11", Double: "r11d", Word: "r11w", Low: "r11b", Encoding: 11},
	{Quad: "r12", Double: "r12d", Word: "r12w", Low: "r12b", Encoding: 12},
	{Quad: "r13", Double: "r13d", Word: "r13w", Low: "r13b", Encoding: 13},
	{Quad: "r14", Double: "r14d", Word: "r14w", Low: "r14b", Encoding: 14},
	{Quad: "r15", Double: "r15d", Word: "r15w", Low: "r15b", Encoding: 15},
}

// RCX is the hard-wired counter register the SGN decoder stub reserves on
// x86-64 (spec §4.F: "a hard-wired counter register (RCX on x86 ...)").
var RCX = x64GPRs[1]

// RSP must never be drawn as the schema decoder's pointer register (spec
// §4.E step 4: "REG_IDX is a random GPR excluding RSP").
var RSP64 = x64GPRs[4]
