package constant

import "os"

// <NodeDir>/                    (e.g., /home/learner/.skillforge)
// └── config/
//	└── skillforge_config.json
// └── databases/
//	└── fhevm_cache.db

const (
	NodeDir = ".skillforge"

	ConfigSubdir   = "config"
	ConfigFileName = "skillforge_config.json"

	DatabasesSubdir  = "databases"
	DatabaseFileName = "fhevm_cache.db"
)

var DefaultNodeHome = os.ExpandEnv("$HOME/") + NodeDir

const (
	// SDKCDNURL is where the relayer SDK bundle is published.
	SDKCDNURL = "https://cdn.zama.ai/relayer-sdk-js/0.2.0/relayer-sdk-js.umd.cjs"

	// LocalDevChainID is the hardhat / anvil default chain id.
	LocalDevChainID uint64 = 31337

	// LocalDevRPCURL is the default RPC URL for LocalDevChainID.
	LocalDevRPCURL = "http://localhost:8545"

	// MockChainMarker is looked for (case-insensitively) in web3_clientVersion.
	MockChainMarker = "hardhat"

	// PublicParamsSize is the bit size public params are fetched and cached at.
	PublicParamsSize = 2048

	// DecryptionSignatureDurationDays is the validity window of a new decryption signature.
	DecryptionSignatureDurationDays = 365
)

// JSON-RPC methods consumed by the session factory.
const (
	MethodChainID         = "eth_chainId"
	MethodClientVersion   = "web3_clientVersion"
	MethodRelayerMetadata = "fhevm_relayer_metadata"
)
