package testutils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"

	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// FakeInstance is an in-memory fhevm.Instance. Encrypted values are kept in
// clear so UserDecrypt can return them.
type FakeInstance struct {
	ChainID           uint64
	VerifyingContract string
	PublicKey         *fhevm.PublicKey
	PublicParams      *fhevm.PublicParams

	EncryptErr error
	DecryptErr error

	mu           sync.Mutex
	clear        map[string]*uint256.Int
	keypairs     int
	decryptCalls int
	lastDecrypt  *fhevm.UserDecryptRequest
}

var _ fhevm.Instance = (*FakeInstance)(nil)

func NewFakeInstance(chainID uint64) *FakeInstance {
	return &FakeInstance{
		ChainID:           chainID,
		VerifyingContract: GetDefaultAddresses().VerifyingContractDecryption.Hex(),
		PublicKey:         &fhevm.PublicKey{ID: "pk-fake", Data: []byte{0xfe, 0xed}},
		PublicParams:      &fhevm.PublicParams{ID: "pp-fake", Data: []byte{0xca, 0xfe}},
		clear:             make(map[string]*uint256.Int),
	}
}

func (f *FakeInstance) CreateEncryptedInput(contractAddress, userAddress string) fhevm.EncryptedInput {
	return &fakeInput{inst: f, contract: contractAddress, user: userAddress}
}

func (f *FakeInstance) GenerateKeypair() (fhevm.KeyPair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return fhevm.KeyPair{}, err
	}
	f.mu.Lock()
	f.keypairs++
	f.mu.Unlock()
	return fhevm.KeyPair{
		PublicKey:  hexutil.Encode(crypto.CompressPubkey(&key.PublicKey)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

func (f *FakeInstance) CreateEIP712(publicKey string, contractAddresses []string, startTimestamp int64, durationDays int) (apitypes.TypedData, error) {
	addrs := make([]interface{}, len(contractAddresses))
	for i, a := range contractAddresses {
		addrs[i] = a
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"UserDecryptRequestVerification": {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
				{Name: "extraData", Type: "bytes"},
			},
		},
		PrimaryType: "UserDecryptRequestVerification",
		Domain: apitypes.TypedDataDomain{
			Name:              "Decryption",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(int64(f.ChainID)),
			VerifyingContract: f.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         publicKey,
			"contractAddresses": addrs,
			"startTimestamp":    strconv.FormatInt(startTimestamp, 10),
			"durationDays":      strconv.Itoa(durationDays),
			"extraData":         "0x00",
		},
	}, nil
}

func (f *FakeInstance) UserDecrypt(ctx context.Context, req fhevm.UserDecryptRequest) (map[string]*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.decryptCalls++
	r := req
	f.lastDecrypt = &r

	if f.DecryptErr != nil {
		return nil, f.DecryptErr
	}
	if req.Signature == "" {
		return nil, fmt.Errorf("missing decryption signature")
	}

	out := make(map[string]*uint256.Int, len(req.Handles))
	for _, h := range req.Handles {
		v, ok := f.clear[strings.ToLower(h.Handle)]
		if !ok {
			return nil, fmt.Errorf("unknown handle %s", h.Handle)
		}
		out[h.Handle] = new(uint256.Int).Set(v)
	}
	return out, nil
}

func (f *FakeInstance) GetPublicKey() *fhevm.PublicKey {
	return f.PublicKey
}

func (f *FakeInstance) GetPublicParams(size int) *fhevm.PublicParams {
	if size != GetDefaultTestConfig().PublicParamsSize {
		return nil
	}
	return f.PublicParams
}

// SetClear registers the clear value behind handle (0x-prefixed hex).
func (f *FakeInstance) SetClear(handle string, v *uint256.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clear[strings.ToLower(handle)] = v
}

func (f *FakeInstance) DecryptCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decryptCalls
}

func (f *FakeInstance) LastDecrypt() *fhevm.UserDecryptRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDecrypt
}

func (f *FakeInstance) KeypairsGenerated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keypairs
}

type fakeInput struct {
	inst     *FakeInstance
	contract string
	user     string
	values   []*uint256.Int
}

func (in *fakeInput) add(v *uint256.Int) fhevm.EncryptedInput {
	in.values = append(in.values, v)
	return in
}

func (in *fakeInput) AddBool(v bool) fhevm.EncryptedInput {
	if v {
		return in.add(uint256.NewInt(1))
	}
	return in.add(uint256.NewInt(0))
}

func (in *fakeInput) Add8(v uint8) fhevm.EncryptedInput   { return in.add(uint256.NewInt(uint64(v))) }
func (in *fakeInput) Add16(v uint16) fhevm.EncryptedInput { return in.add(uint256.NewInt(uint64(v))) }
func (in *fakeInput) Add32(v uint32) fhevm.EncryptedInput { return in.add(uint256.NewInt(uint64(v))) }
func (in *fakeInput) Add64(v uint64) fhevm.EncryptedInput { return in.add(uint256.NewInt(v)) }

func (in *fakeInput) Encrypt(ctx context.Context) (*fhevm.EncryptedValues, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.inst.EncryptErr != nil {
		return nil, in.inst.EncryptErr
	}

	out := &fhevm.EncryptedValues{}
	proof := make([]byte, 0, 32*len(in.values))
	for i, v := range in.values {
		vb := v.Bytes32()
		handle := crypto.Keccak256(
			common.HexToAddress(in.contract).Bytes(),
			common.HexToAddress(in.user).Bytes(),
			[]byte{byte(i)},
			vb[:],
		)
		out.Handles = append(out.Handles, handle)
		proof = append(proof, handle...)
		in.inst.SetClear(hexutil.Encode(handle), v)
	}
	out.InputProof = crypto.Keccak256(proof)
	return out, nil
}
