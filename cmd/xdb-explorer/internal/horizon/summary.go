package horizon

// Summary is the display projection of a transaction, derived from its first
// operation. Perspective is the address the listing was requested for: a
// payment into it is labelled "Received" rather than "Payment".
type Summary struct {
	Kind           string
	From           string
	To             string
	Amount         string
	Asset          string
	OperationCount int

	// NeedsOperations is set when the transaction's operations have not been
	// loaded, in which case the summary only carries wire-level fields.
	NeedsOperations bool
}

// Summarize interprets a transaction for display. When operations are absent
// the summary falls back to the transaction's own fields.
func Summarize(tx Transaction, perspective string) Summary {
	if len(tx.Operations) == 0 {
		kind := tx.MainOperationType
		if kind == "" || kind == UnknownOperationType {
			kind = "Transaction"
		}
		count := int(tx.OperationCount)
		if count == 0 {
			count = 1
		}
		return Summary{
			Kind:            kind,
			From:            tx.SourceAccount,
			Asset:           NativeAssetCode,
			OperationCount:  count,
			NeedsOperations: true,
		}
	}

	main := tx.Operations[0]
	s := Summary{
		Kind:           "Other",
		Asset:          NativeAssetCode,
		OperationCount: len(tx.Operations),
	}

	switch d := main.Details.(type) {
	case Payment:
		if d.To == perspective {
			s.Kind = "Received"
		} else {
			s.Kind = "Payment"
		}
		s.From, s.To = d.From, d.To
		s.Amount = d.Amount
		s.Asset = d.Asset.Display()
	case CreateAccount:
		s.Kind = "Account Creation"
		s.From = main.SourceAccount
		if s.From == "" {
			s.From = tx.SourceAccount
		}
		s.To = d.Account
		s.Amount = d.StartingBalance
	case ChangeTrust:
		s.Kind = "Trust Change"
		s.From = d.Trustor
		s.Asset = d.Asset.Display()
	case AllowTrust:
		s.Kind = "Allow Trust"
		s.From = d.Trustee
		s.To = d.Trustor
		s.Asset = d.Asset.Display()
	case ManageSellOffer:
		s.Kind = "Sell Offer"
		s.Amount = d.Amount
		s.Asset = d.Selling.Display()
	case ManageBuyOffer:
		s.Kind = "Buy Offer"
		s.Amount = d.Amount
		s.Asset = d.Buying.Display()
	case SetOptions:
		s.Kind = "Set Options"
	case AccountMerge:
		s.Kind = "Account Merge"
		s.From = tx.SourceAccount
		s.To = d.Destination
	case BumpSequence:
		s.Kind = "Bump Sequence"
	case PathPaymentStrictReceive:
		s.Kind = "Path Payment (Receive)"
		s.From, s.To = d.From, d.To
		s.Amount = d.DestinationAmount
		s.Asset = d.DestinationAsset.Display()
	case PathPaymentStrictSend:
		s.Kind = "Path Payment (Send)"
		s.From, s.To = d.From, d.To
		s.Amount = d.SourceAmount
		s.Asset = d.SourceAsset.Display()
	case Unrecognized:
		// The raw type tag is the best human-readable label we have.
		s.Kind = main.Type
	}
	return s
}
