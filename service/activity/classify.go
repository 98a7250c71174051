package activity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/BadGenius22/vouch-protocol-sub001/service/helius"
)

// loaderIDs are the program loaders that execute deployments. They are
// never themselves the deployed program.
var loaderIDs = map[string]struct{}{
	solana.BPFLoaderUpgradeableProgramID.String(): {},
	solana.BPFLoaderProgramID.String():            {},
	solana.BPFLoaderDeprecatedProgramID.String():  {},
}

func isLoader(address string) bool {
	_, ok := loaderIDs[address]
	return ok
}

// programName derives a short display label from a program address.
func programName(address string) string {
	if len(address) < 8 {
		return fmt.Sprintf("Program %s", address)
	}
	return fmt.Sprintf("Program %s", address[:8])
}

// ClassifyDeployment inspects one parsed transaction for a program
// deployment attributable to deployer. The primary signal is a
// deployment-tagged transaction whose balance deltas show a non-loader,
// non-deployer account being funded. When the tag is absent, the
// instruction list is scanned for a loader invocation and the first
// foreign account it touches is taken as the candidate. No match means
// no event, not an error.
func ClassifyDeployment(tx *helius.EnhancedTransaction, deployer string) (string, bool) {
	if tx.Kind == helius.KindProgramDeploy {
		for _, acct := range tx.AccountData {
			if acct.Account == deployer || isLoader(acct.Account) {
				continue
			}
			if acct.NativeBalanceChange > 0 {
				return acct.Account, true
			}
		}
	}

	for _, ins := range tx.Instructions {
		if !isLoader(ins.ProgramID) {
			continue
		}
		for _, acct := range ins.Accounts {
			if acct == deployer || isLoader(acct) {
				continue
			}
			return acct, true
		}
	}
	return "", false
}

// ExtractTrade derives a fiat trade value from a swap transaction.
// Amount precedence: native input, native output, stablecoin token
// input, stablecoin token output, then the largest native transfer.
// Native legs carry the strongest signal of swap size, stablecoin legs
// are exact fiat, and raw transfers are a last resort for swaps without
// structured event data. Amounts below the dust cutoff are dropped.
func ExtractTrade(tx *helius.EnhancedTransaction, solPriceUSD float64) (TradeRecord, bool) {
	if tx.Kind != helius.KindSwap {
		return TradeRecord{}, false
	}

	usd, ok := tradeValueUSD(tx, solPriceUSD)
	if !ok {
		return TradeRecord{}, false
	}
	if usd < DustThresholdSOL*solPriceUSD {
		return TradeRecord{}, false
	}

	return TradeRecord{
		Signature: tx.Signature,
		Amount:    int64(math.Round(usd)),
		Timestamp: tx.BlockTime(),
		Type:      "swap",
	}, true
}

func tradeValueUSD(tx *helius.EnhancedTransaction, solPriceUSD float64) (float64, bool) {
	if swap := tx.Events.Swap; swap != nil {
		if usd, ok := nativeLegUSD(swap.NativeInput, solPriceUSD); ok {
			return usd, true
		}
		if usd, ok := nativeLegUSD(swap.NativeOutput, solPriceUSD); ok {
			return usd, true
		}
		if usd, ok := stablecoinLegUSD(swap.TokenInputs); ok {
			return usd, true
		}
		if usd, ok := stablecoinLegUSD(swap.TokenOutputs); ok {
			return usd, true
		}
	}

	var largest int64
	for _, tr := range tx.NativeTransfers {
		if tr.Amount > largest {
			largest = tr.Amount
		}
	}
	if largest > 0 {
		return float64(largest) / LamportsPerSOL * solPriceUSD, true
	}
	return 0, false
}

func nativeLegUSD(leg *helius.NativeBalance, solPriceUSD float64) (float64, bool) {
	if leg == nil {
		return 0, false
	}
	lamports, err := strconv.ParseFloat(leg.Amount, 64)
	if err != nil || lamports <= 0 {
		return 0, false
	}
	return lamports / LamportsPerSOL * solPriceUSD, true
}

func stablecoinLegUSD(legs []helius.SwapTokenLeg) (float64, bool) {
	for _, leg := range legs {
		decimals, ok := stablecoinDecimals[leg.Mint]
		if !ok {
			continue
		}
		raw, err := strconv.ParseFloat(leg.RawTokenAmount.TokenAmount, 64)
		if err != nil || raw <= 0 {
			continue
		}
		scale := leg.RawTokenAmount.Decimals
		if scale == 0 {
			scale = decimals
		}
		return raw / math.Pow10(scale), true
	}
	return 0, false
}
