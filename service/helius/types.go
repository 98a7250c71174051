package helius

import "time"

// TransactionKind is the classification tag decoded once at the client
// boundary. Downstream code switches on the kind instead of probing
// optional fields; anything unmappable is KindUnclassified.
type TransactionKind string

const (
	KindProgramDeploy TransactionKind = "program_deploy"
	KindSwap          TransactionKind = "swap"
	KindTransfer      TransactionKind = "transfer"
	KindUnclassified  TransactionKind = "unclassified"
)

// SignatureInfo is one entry from the signature listing endpoint.
// BlockTime is nil when the node does not know the block time; callers
// filtering by recency must exclude such entries rather than guess.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
	Failed    bool
}

// EnhancedTransaction is a structured transaction record from the
// enhanced-transaction parsing endpoint.
type EnhancedTransaction struct {
	Description      string           `json:"description"`
	Type             string           `json:"type"`
	Source           string           `json:"source"`
	Fee              int64            `json:"fee"`
	FeePayer         string           `json:"feePayer"`
	Signature        string           `json:"signature"`
	Slot             int64            `json:"slot"`
	Timestamp        int64            `json:"timestamp"`
	NativeTransfers  []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers   []TokenTransfer  `json:"tokenTransfers"`
	AccountData      []AccountData    `json:"accountData"`
	Instructions     []Instruction    `json:"instructions"`
	Events           Events           `json:"events"`
	TransactionError any              `json:"transactionError"`

	// Kind is not part of the wire format; it is assigned by the client
	// after decoding and is the only field classification code reads.
	Kind TransactionKind `json:"-"`
}

// BlockTime converts the Unix timestamp to a time.Time.
func (t *EnhancedTransaction) BlockTime() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// NativeTransfer is a lamport movement between two accounts.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// TokenTransfer is an SPL token movement. TokenAmount is expressed in
// UI units (already adjusted for decimals).
type TokenTransfer struct {
	FromUserAccount  string  `json:"fromUserAccount"`
	ToUserAccount    string  `json:"toUserAccount"`
	FromTokenAccount string  `json:"fromTokenAccount"`
	ToTokenAccount   string  `json:"toTokenAccount"`
	TokenAmount      float64 `json:"tokenAmount"`
	Mint             string  `json:"mint"`
}

// AccountData carries per-account balance deltas for one transaction.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange"`
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// TokenBalanceChange is a raw token balance delta for one account.
type TokenBalanceChange struct {
	UserAccount    string      `json:"userAccount"`
	TokenAccount   string      `json:"tokenAccount"`
	Mint           string      `json:"mint"`
	RawTokenAmount TokenAmount `json:"rawTokenAmount"`
}

// TokenAmount is a raw integer amount plus its decimal scale.
type TokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int    `json:"decimals"`
}

// Instruction is a top-level instruction with the accounts it touches.
type Instruction struct {
	Accounts  []string `json:"accounts"`
	Data      string   `json:"data"`
	ProgramID string   `json:"programId"`
}

// Events holds the structured event payloads the parser attaches to a
// transaction. Only the swap event is consumed here.
type Events struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// SwapEvent describes a token swap with native and token legs.
type SwapEvent struct {
	NativeInput  *NativeBalance  `json:"nativeInput,omitempty"`
	NativeOutput *NativeBalance  `json:"nativeOutput,omitempty"`
	TokenInputs  []SwapTokenLeg  `json:"tokenInputs"`
	TokenOutputs []SwapTokenLeg  `json:"tokenOutputs"`
}

// NativeBalance is a lamport amount attached to a swap leg. Amount is a
// decimal string of lamports, as delivered on the wire.
type NativeBalance struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// SwapTokenLeg is a token-denominated swap leg.
type SwapTokenLeg struct {
	UserAccount    string      `json:"userAccount"`
	TokenAccount   string      `json:"tokenAccount"`
	Mint           string      `json:"mint"`
	RawTokenAmount TokenAmount `json:"rawTokenAmount"`
}

// Asset is one priced holding from the asset-holdings endpoint.
type Asset struct {
	ID         string  `json:"id"`
	TotalPrice float64 `json:"totalPrice"` // fiat value of the holding
}

// UpgradeableLoaderID is the upgradeable BPF loader program. An
// instruction owned by this program marks a deployment even when the
// parser did not tag the transaction type.
const UpgradeableLoaderID = "BPFLoaderUpgradeab1e11111111111111111111111"

// deployTypeTags are the parser type tags that indicate a program
// deployment or upgrade.
var deployTypeTags = map[string]struct{}{
	"UPGRADE_PROGRAM_INSTRUCTION": {},
	"DEPLOY_PROGRAM":              {},
}

// swapSources is the allow-list of venues whose transactions qualify as
// trades. A transaction from any other source is not a trade even if it
// carries a swap-shaped payload.
var swapSources = map[string]struct{}{
	"JUPITER":  {},
	"RAYDIUM":  {},
	"ORCA":     {},
	"PHOENIX":  {},
	"METEORA":  {},
	"LIFINITY": {},
}

// decodeKind maps the loose type/source tags onto the exhaustive kind
// enum. Called exactly once per transaction, at the decode boundary.
func decodeKind(t *EnhancedTransaction) TransactionKind {
	if _, ok := deployTypeTags[t.Type]; ok {
		return KindProgramDeploy
	}
	if t.Type == "SWAP" {
		return KindSwap
	}
	if _, ok := swapSources[t.Source]; ok {
		return KindSwap
	}
	if t.Type == "TRANSFER" {
		return KindTransfer
	}
	return KindUnclassified
}

// IsSwapSource reports whether source is on the trade allow-list.
func IsSwapSource(source string) bool {
	_, ok := swapSources[source]
	return ok
}
