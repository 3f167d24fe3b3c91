package cctp

// Minimal ABI fragments for CCTP-style burn-and-mint, per spec.md §6.
// Hand-written the way the teacher's swap providers inline their ABI
// JSON (thorchain/provider.go's ERC20ApproveABI, RouterDepositABI)
// rather than depend on an abigen-generated package the corpus doesn't
// carry.

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const tokenMessengerABIJSON = `[
	{"inputs":[{"name":"amount","type":"uint256"},{"name":"destinationDomain","type":"uint32"},{"name":"mintRecipient","type":"bytes32"},{"name":"burnToken","type":"address"}],"name":"depositForBurn","outputs":[{"name":"","type":"uint64"}],"stateMutability":"nonpayable","type":"function"}
]`

const messageTransmitterABIJSON = `[
	{"inputs":[{"name":"message","type":"bytes"},{"name":"attestation","type":"bytes"}],"name":"receiveMessage","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"sourceDomain","type":"uint32"},{"name":"nonce","type":"uint64"}],"name":"usedNonces","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"localDomain","outputs":[{"name":"","type":"uint32"}],"stateMutability":"view","type":"function"}
]`

// messageSentSignature is the event signature whose keccak256 is the
// MessageSent log topic, per spec.md §4.7.1 step 2.
const messageSentSignature = "MessageSent(bytes)"
