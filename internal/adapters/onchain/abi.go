package onchain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract ABIs: only the functions this client calls, lifted from the
// deployed Project Mocha contracts on Scroll Sepolia.
var (
	landTokenABI   abi.ABI
	farmManagerABI abi.ABI
	beanTokenABI   abi.ABI
)

func init() {
	var err error

	landTokenABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getFarmData",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "tokenId", "type": "uint256"}],
			"outputs": [
				{
					"type": "tuple",
					"components": [
						{"name": "name", "type": "string"},
						{"name": "location", "type": "string"},
						{"name": "gpsCoordinates", "type": "string"},
						{"name": "totalArea", "type": "uint256"},
						{"name": "treeCapacity", "type": "uint256"},
						{"name": "currentTrees", "type": "uint256"},
						{"name": "creationTime", "type": "uint256"},
						{"name": "farmer", "type": "address"},
						{"name": "isActive", "type": "bool"},
						{"name": "metadataURI", "type": "string"}
					]
				}
			]
		},
		{
			"name": "getTotalFarms",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "farmManager",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		}
	]`))
	if err != nil {
		panic("land token abi parse: " + err.Error())
	}

	farmManagerABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getAllFarms",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint256[]"}]
		},
		{
			"name": "getFarmStats",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "farmId", "type": "uint256"}],
			"outputs": [
				{"name": "totalInvestment", "type": "uint256"},
				{"name": "totalTrees", "type": "uint256"},
				{"name": "investorCount", "type": "uint256"}
			]
		},
		{
			"name": "purchaseTrees",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "farmId", "type": "uint256"},
				{"name": "treeCount", "type": "uint256"}
			],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("farm manager abi parse: " + err.Error())
	}

	beanTokenABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "approve",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "paused",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("bean token abi parse: " + err.Error())
	}
}

// farmDataTuple matches the MochaLandToken.FarmData struct layout.
type farmDataTuple struct {
	Name           string
	Location       string
	GpsCoordinates string
	TotalArea      *big.Int
	TreeCapacity   *big.Int
	CurrentTrees   *big.Int
	CreationTime   *big.Int
	Farmer         common.Address
	IsActive       bool
	MetadataURI    string
}
