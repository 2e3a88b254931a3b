package testutils

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

type Addresses struct {
	// Contract addresses
	ACLAddr                     common.Address
	KMSVerifierAddr             common.Address
	InputVerifierAddr           common.Address
	VerifyingContractDecryption common.Address
	VerifyingContractInput      common.Address
	CourseContractAddr          common.Address
	BadgeContractAddr           common.Address

	// Mock node contract addresses (fhevm_relayer_metadata)
	MockACLAddr           common.Address
	MockInputVerifierAddr common.Address
	MockKMSVerifierAddr   common.Address

	// Account addresses (hex format)
	DefaultTestAddr string
	TargetAddr      string
}

type TestConfig struct {
	ChainID          uint64
	GatewayChainID   uint64
	MockChainID      uint64
	RelayerURL       string
	PublicParamsSize int
}

func GetDefaultAddresses() Addresses {
	return Addresses{
		ACLAddr:                     common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c"),
		KMSVerifierAddr:             common.HexToAddress("0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC"),
		InputVerifierAddr:           common.HexToAddress("0xbc91f3daD1A5F19F8390c400196e58073B6a0BC4"),
		VerifyingContractDecryption: common.HexToAddress("0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1"),
		VerifyingContractInput:      common.HexToAddress("0x7048C39f048125eDa9d678AEbaDfB22F7900a29F"),
		CourseContractAddr:          common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		BadgeContractAddr:           common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		MockACLAddr:                 common.HexToAddress("0x50157CFfD6bBFA2DECe204a89ec419c23ef5755D"),
		MockInputVerifierAddr:       common.HexToAddress("0x901F8942346f7AB3a01F6D7613119Bca447Bb030"),
		MockKMSVerifierAddr:         common.HexToAddress("0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC"),
		DefaultTestAddr:             "0x778d3206374f8ac265728e18e3fe2ae6b93e4ce4",
		TargetAddr:                  "0x527F3692F5C53CfA83F7689885995606F93b6164",
	}
}

func GetDefaultTestConfig() TestConfig {
	return TestConfig{
		ChainID:          11155111,
		GatewayChainID:   55815,
		MockChainID:      31337,
		RelayerURL:       "https://relayer.testnet.zama.cloud",
		PublicParamsSize: 2048,
	}
}

// DefaultNetworkConfig is the production network configuration a fake
// runtime exposes.
func DefaultNetworkConfig() fhevm.NetworkConfig {
	addrs := GetDefaultAddresses()
	cfg := GetDefaultTestConfig()
	return fhevm.NetworkConfig{
		ACLContractAddress:                  addrs.ACLAddr.Hex(),
		KMSContractAddress:                  addrs.KMSVerifierAddr.Hex(),
		InputVerifierContractAddress:        addrs.InputVerifierAddr.Hex(),
		VerifyingContractAddressDecryption:  addrs.VerifyingContractDecryption.Hex(),
		VerifyingContractAddressInputVerify: addrs.VerifyingContractInput.Hex(),
		ChainID:                             cfg.ChainID,
		GatewayChainID:                      cfg.GatewayChainID,
		RelayerURL:                          cfg.RelayerURL,
	}
}
