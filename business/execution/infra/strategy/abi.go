package strategy

// ContractABI is the subset of the deployed arbitrage contract the executor
// calls: a view simulation, the trade and the profit withdrawal.
const ContractABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "amountIn", "type": "uint256"}],
		"name": "simulateArb",
		"outputs": [{"internalType": "uint256", "name": "profit", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "minProfit", "type": "uint256"}
		],
		"name": "executeArb",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "token", "type": "address"}],
		"name": "withdrawTokens",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
