package walletcore

// erc20TransferABIJSON carries only the transfer entry point a plain
// token send needs, in the teacher's inline-ABI-JSON style (see
// bridge/cctp/abi.go, bridge/across/abi.go).
const erc20TransferABIJSON = `[
	{"inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}
	],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`
