package cryptotax

import (
	"fmt"
)

// Finding is one advisory issue detected in the transaction log. Findings
// never block a replay; they point at source data worth fixing upstream.
type Finding struct {
	TxID     string
	WalletID string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("tx %s wallet %s: %s", f.TxID, f.WalletID, f.Message)
}

// CheckTransactions walks the log in order and reports consistency issues:
// wallets referenced but unregistered, crypto disposed of before any
// recorded acquisition, balances driven negative, and tracked balances
// disagreeing with the transaction-embedded ones.
//
// The check replays balances only, without prices, so it runs offline and
// before any oracle is touched.
func CheckTransactions(log *TransactionLog, registry *WalletRegistry) []Finding {
	var findings []Finding
	balances := make(map[string]Quantity)

	report := func(txID, walletID, format string, args ...any) {
		findings = append(findings, Finding{
			TxID:     txID,
			WalletID: walletID,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	cryptoLeg := func(txID string, leg WalletSnapshot) (*Wallet, bool) {
		w, ok := registry.Get(leg.Wallet)
		if !ok {
			report(txID, leg.Wallet, "wallet not registered")
			return nil, false
		}
		return w, w.IsCrypto()
	}

	for tx := range log.Transactions() {
		var from, to WalletSnapshot
		var sent, received Quantity

		switch v := tx.(type) {
		case Trade:
			from, to = v.From, v.To
			sent, received = v.SoldAmount, v.BoughtAmount
		case Transfer:
			from, to = v.From, v.To
			sent, received = v.Amount, v.Amount
		default:
			continue
		}

		if w, crypto := cryptoLeg(tx.ID(), from); crypto {
			balance, tracked := balances[from.Wallet]
			if !tracked {
				// First sight of this wallet is an outflow: the holdings it
				// spends were acquired outside the log.
				if from.PreTxBalance.IsPositive() {
					report(tx.ID(), from.Wallet, "%s disposed of without a recorded acquisition", w.Currency)
				}
				balance = from.PreTxBalance
			} else if !balance.Equal(from.PreTxBalance) {
				report(tx.ID(), from.Wallet, "tracked balance %s differs from declared %s", balance, from.PreTxBalance)
			}
			balance = balance.Sub(sent).Sub(from.FeeOrZero())
			if balance.IsNegative() {
				report(tx.ID(), from.Wallet, "balance driven negative to %s", balance)
			}
			balances[from.Wallet] = balance
		}

		if _, crypto := cryptoLeg(tx.ID(), to); crypto {
			credited := received.Sub(to.FeeOrZero())
			if balance, tracked := balances[to.Wallet]; tracked {
				balances[to.Wallet] = balance.Add(credited)
			} else {
				balances[to.Wallet] = to.PreTxBalance.Add(credited)
			}
		}
	}
	return findings
}
