package across

// spokePoolABIJSON carries only the deposit entry point the adapter
// needs, hand-written in the teacher's inline-ABI-JSON style
// (thorchain/provider.go's RouterDepositABI).
const spokePoolABIJSON = `[
	{"inputs":[
		{"name":"recipient","type":"address"},
		{"name":"inputToken","type":"address"},
		{"name":"outputToken","type":"address"},
		{"name":"inputAmount","type":"uint256"},
		{"name":"outputAmount","type":"uint256"},
		{"name":"destinationChainId","type":"uint256"},
		{"name":"exclusiveRelayer","type":"address"},
		{"name":"quoteTimestamp","type":"uint32"},
		{"name":"fillDeadline","type":"uint32"},
		{"name":"exclusivityDeadline","type":"uint32"},
		{"name":"message","type":"bytes"}
	],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`
