package onchain

import (
	"io"
	"strings"
)

// Minimal ABIs for Multicall3 and ERC20, only the methods we call.

func mustMulticallABI() io.Reader {
	return strings.NewReader(`[
		{
			"name": "aggregate",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [
				{
					"name": "calls",
					"type": "tuple[]",
					"components": [
						{"name": "target",   "type": "address"},
						{"name": "callData", "type": "bytes"}
					]
				}
			],
			"outputs": [
				{"name": "blockNumber", "type": "uint256"},
				{"name": "returnData",  "type": "bytes[]"}
			]
		}
	]`)
}

func mustERC20ABI() io.Reader {
	return strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "_owner", "type": "address"}],
			"outputs": [{"name": "balance", "type": "uint256"}]
		}
	]`)
}
