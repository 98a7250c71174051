package helius

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

// MockClient is a deterministic stand-in for the indexing service. It
// is used when no API key is configured, on non-production networks,
// and when mock data is explicitly forced. All data is derived from the
// wallet address so repeated runs produce identical results.
type MockClient struct {
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewMockClient creates a mock indexing client.
func NewMockClient() *MockClient {
	return &MockClient{Now: time.Now}
}

// seedFor derives a stable seed from an address.
func seedFor(address string) int64 {
	h := fnv.New64a()
	h.Write([]byte(address))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

// mockSignature fabricates a plausible base58-looking signature.
func mockSignature(rng *rand.Rand) string {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	b := make([]byte, 88)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// mockAddress fabricates a plausible base58-looking account address.
func mockAddress(rng *rand.Rand) string {
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	b := make([]byte, 44)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// ListSignatures returns a deterministic signature history for the
// wallet: between 40 and 120 entries spread over the past 90 days,
// newest first. Roughly one in twenty entries has no block time.
func (m *MockClient) ListSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	rng := rand.New(rand.NewSource(seedFor(address)))
	count := 40 + rng.Intn(81)
	if count > limit {
		count = limit
	}

	now := m.Now().UTC()
	sigs := make([]SignatureInfo, 0, count)
	offset := time.Duration(0)
	for i := 0; i < count; i++ {
		offset += time.Duration(1+rng.Intn(48)) * time.Hour
		blockTime := now.Add(-offset)
		info := SignatureInfo{
			Signature: mockSignature(rng),
			Slot:      300_000_000 - uint64(i)*150,
		}
		if rng.Intn(20) != 0 {
			t := blockTime
			info.BlockTime = &t
		}
		sigs = append(sigs, info)
	}
	return sigs, nil
}

// ParseTransactions fabricates structured transactions for a batch of
// signatures. The mix is deterministic per signature: a handful of
// program deployments, a larger share of swaps across the known venues,
// and plain transfers for the remainder.
func (m *MockClient) ParseTransactions(ctx context.Context, signatures []string) ([]*EnhancedTransaction, error) {
	if len(signatures) > BatchSize {
		return nil, fmt.Errorf("batch of %d exceeds parse limit of %d", len(signatures), BatchSize)
	}

	now := m.Now().UTC()
	txns := make([]*EnhancedTransaction, 0, len(signatures))
	for i, sig := range signatures {
		rng := rand.New(rand.NewSource(seedFor(sig)))
		timestamp := now.Add(-time.Duration(i*7+1) * time.Hour).Unix()

		tx := &EnhancedTransaction{
			Signature: sig,
			Slot:      300_000_000 - int64(i)*150,
			Timestamp: timestamp,
			Fee:       5000,
		}

		switch roll := rng.Intn(10); {
		case roll == 0:
			m.fillDeployment(rng, tx)
		case roll <= 5:
			m.fillSwap(rng, tx)
		default:
			m.fillTransfer(rng, tx)
		}

		tx.Kind = decodeKind(tx)
		txns = append(txns, tx)
	}
	return txns, nil
}

func (m *MockClient) fillDeployment(rng *rand.Rand, tx *EnhancedTransaction) {
	deployer := mockAddress(rng)
	program := mockAddress(rng)

	tx.Type = "UPGRADE_PROGRAM_INSTRUCTION"
	tx.Source = "SOLANA_PROGRAM_LIBRARY"
	tx.FeePayer = deployer
	tx.Description = "program deployment"
	tx.AccountData = []AccountData{
		{Account: deployer, NativeBalanceChange: -2_500_000_000},
		{Account: program, NativeBalanceChange: 2_000_000_000},
	}
	tx.Instructions = []Instruction{
		{
			ProgramID: UpgradeableLoaderID,
			Accounts:  []string{program, deployer},
		},
	}
}

func (m *MockClient) fillSwap(rng *rand.Rand, tx *EnhancedTransaction) {
	venues := []string{"JUPITER", "RAYDIUM", "ORCA", "METEORA"}
	trader := mockAddress(rng)

	tx.Type = "SWAP"
	tx.Source = venues[rng.Intn(len(venues))]
	tx.FeePayer = trader
	tx.Description = "token swap"

	// Between 0.05 and 25 SOL in.
	lamports := int64(50_000_000 + rng.Intn(25_000_000_000))
	tx.Events.Swap = &SwapEvent{
		NativeInput: &NativeBalance{
			Account: trader,
			Amount:  fmt.Sprintf("%d", lamports),
		},
		TokenOutputs: []SwapTokenLeg{
			{
				UserAccount: trader,
				Mint:        mockAddress(rng),
				RawTokenAmount: TokenAmount{
					TokenAmount: fmt.Sprintf("%d", rng.Intn(1_000_000_000)),
					Decimals:    6,
				},
			},
		},
	}
	tx.NativeTransfers = []NativeTransfer{
		{FromUserAccount: trader, ToUserAccount: mockAddress(rng), Amount: lamports},
	}
}

func (m *MockClient) fillTransfer(rng *rand.Rand, tx *EnhancedTransaction) {
	from := mockAddress(rng)
	tx.Type = "TRANSFER"
	tx.Source = "SYSTEM_PROGRAM"
	tx.FeePayer = from
	tx.Description = "transfer"
	tx.NativeTransfers = []NativeTransfer{
		{FromUserAccount: from, ToUserAccount: mockAddress(rng), Amount: int64(1_000_000 + rng.Intn(900_000_000))},
	}
}

// GetNativeBalance returns a deterministic lamport balance between 0.5
// and ~50 SOL.
func (m *MockClient) GetNativeBalance(ctx context.Context, address string) (uint64, error) {
	rng := rand.New(rand.NewSource(seedFor(address) ^ 0x62616c))
	return 500_000_000 + uint64(rng.Intn(50_000_000_000)), nil
}

// GetAssetsByOwner returns between 0 and 5 deterministic priced
// holdings.
func (m *MockClient) GetAssetsByOwner(ctx context.Context, owner string) ([]Asset, error) {
	rng := rand.New(rand.NewSource(seedFor(owner) ^ 0x617373))
	count := rng.Intn(6)
	assets := make([]Asset, 0, count)
	for i := 0; i < count; i++ {
		assets = append(assets, Asset{
			ID:         mockAddress(rng),
			TotalPrice: float64(rng.Intn(500_000)) / 100,
		})
	}
	return assets, nil
}
