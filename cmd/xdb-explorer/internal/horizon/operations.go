package horizon

import (
	"encoding/json"
	"time"
)

// Operation type tags as Horizon reports them.
const (
	OpPayment                  = "payment"
	OpCreateAccount            = "create_account"
	OpChangeTrust              = "change_trust"
	OpAllowTrust               = "allow_trust"
	OpManageSellOffer          = "manage_sell_offer"
	OpManageBuyOffer           = "manage_buy_offer"
	OpSetOptions               = "set_options"
	OpAccountMerge             = "account_merge"
	OpBumpSequence             = "bump_sequence"
	OpPathPaymentStrictReceive = "path_payment_strict_receive"
	OpPathPaymentStrictSend    = "path_payment_strict_send"
)

// UnknownOperationType is the main-operation label of a transaction whose
// operations could not be fetched.
const UnknownOperationType = "unknown"

// Operation is one ledger action within a transaction. The variant fields
// live behind Details, decoded according to the type tag; tags this client
// does not model decode to Unrecognized with the raw payload preserved.
type Operation struct {
	ID              string    `json:"id"`
	PagingToken     string    `json:"paging_token"`
	Type            string    `json:"type"`
	SourceAccount   string    `json:"source_account"`
	TransactionHash string    `json:"transaction_hash"`
	CreatedAt       time.Time `json:"created_at"`

	Details Details `json:"-"`
}

func (o Operation) pagingToken() string { return o.PagingToken }

// Details is the closed set of operation variants.
type Details interface {
	operationDetails()
}

type Payment struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Asset  Asset  `json:"-"`
}

type CreateAccount struct {
	Funder          string `json:"funder"`
	Account         string `json:"account"`
	StartingBalance string `json:"starting_balance"`
}

type ChangeTrust struct {
	Trustor string `json:"trustor"`
	Trustee string `json:"trustee"`
	Limit   string `json:"limit"`
	Asset   Asset  `json:"-"`
}

type AllowTrust struct {
	Trustor   string `json:"trustor"`
	Trustee   string `json:"trustee"`
	Authorize bool   `json:"authorize"`
	Asset     Asset  `json:"-"`
}

type ManageSellOffer struct {
	OfferID json.Number `json:"offer_id"`
	Amount  string      `json:"amount"`
	Price   string      `json:"price"`
	Selling Asset       `json:"-"`
	Buying  Asset       `json:"-"`
}

type ManageBuyOffer struct {
	OfferID json.Number `json:"offer_id"`
	Amount  string      `json:"amount"`
	Price   string      `json:"price"`
	Selling Asset       `json:"-"`
	Buying  Asset       `json:"-"`
}

type SetOptions struct {
	HomeDomain   string `json:"home_domain"`
	InflationDst string `json:"inflation_dest"`
}

type AccountMerge struct {
	Account     string `json:"account"`
	Destination string `json:"into"`
}

type BumpSequence struct {
	BumpTo string `json:"bump_to"`
}

type PathPaymentStrictReceive struct {
	From              string `json:"from"`
	To                string `json:"to"`
	DestinationAmount string `json:"amount"`
	SourceMax         string `json:"source_max"`
	DestinationAsset  Asset  `json:"-"`
	SourceAsset       Asset  `json:"-"`
}

type PathPaymentStrictSend struct {
	From             string `json:"from"`
	To               string `json:"to"`
	SourceAmount     string `json:"source_amount"`
	DestinationMin   string `json:"destination_min"`
	DestinationAsset Asset  `json:"-"`
	SourceAsset      Asset  `json:"-"`
}

// Unrecognized preserves the payload of an operation type this client does
// not model. Its type tag is still available on the enclosing Operation.
type Unrecognized struct {
	Raw json.RawMessage
}

func (Payment) operationDetails()                  {}
func (CreateAccount) operationDetails()            {}
func (ChangeTrust) operationDetails()              {}
func (AllowTrust) operationDetails()               {}
func (ManageSellOffer) operationDetails()          {}
func (ManageBuyOffer) operationDetails()           {}
func (SetOptions) operationDetails()               {}
func (AccountMerge) operationDetails()             {}
func (BumpSequence) operationDetails()             {}
func (PathPaymentStrictReceive) operationDetails() {}
func (PathPaymentStrictSend) operationDetails()    {}
func (Unrecognized) operationDetails()             {}

// assetFields carries the flattened asset columns Horizon embeds in
// operation records, with every prefix this client cares about.
type assetFields struct {
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`

	SellingAssetType   string `json:"selling_asset_type"`
	SellingAssetCode   string `json:"selling_asset_code"`
	SellingAssetIssuer string `json:"selling_asset_issuer"`

	BuyingAssetType   string `json:"buying_asset_type"`
	BuyingAssetCode   string `json:"buying_asset_code"`
	BuyingAssetIssuer string `json:"buying_asset_issuer"`

	SourceAssetType   string `json:"source_asset_type"`
	SourceAssetCode   string `json:"source_asset_code"`
	SourceAssetIssuer string `json:"source_asset_issuer"`

	DestinationAssetType   string `json:"destination_asset_type"`
	DestinationAssetCode   string `json:"destination_asset_code"`
	DestinationAssetIssuer string `json:"destination_asset_issuer"`
}

func (f assetFields) asset() Asset {
	return Asset{Type: f.AssetType, Code: f.AssetCode, Issuer: f.AssetIssuer}
}

func (f assetFields) selling() Asset {
	return Asset{Type: f.SellingAssetType, Code: f.SellingAssetCode, Issuer: f.SellingAssetIssuer}
}

func (f assetFields) buying() Asset {
	return Asset{Type: f.BuyingAssetType, Code: f.BuyingAssetCode, Issuer: f.BuyingAssetIssuer}
}

func (f assetFields) source() Asset {
	return Asset{Type: f.SourceAssetType, Code: f.SourceAssetCode, Issuer: f.SourceAssetIssuer}
}

func (f assetFields) destination() Asset {
	return Asset{Type: f.DestinationAssetType, Code: f.DestinationAssetCode, Issuer: f.DestinationAssetIssuer}
}

// UnmarshalJSON decodes the common operation fields and then the variant
// selected by the type tag.
func (o *Operation) UnmarshalJSON(data []byte) error {
	type common Operation
	var base common
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*o = Operation(base)

	var assets assetFields
	if err := json.Unmarshal(data, &assets); err != nil {
		return err
	}

	switch o.Type {
	case OpPayment:
		var d Payment
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.Asset = assets.asset()
		o.Details = d
	case OpCreateAccount:
		var d CreateAccount
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		o.Details = d
	case OpChangeTrust:
		var d ChangeTrust
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.Asset = assets.asset()
		o.Details = d
	case OpAllowTrust:
		var d AllowTrust
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.Asset = assets.asset()
		o.Details = d
	case OpManageSellOffer:
		var d ManageSellOffer
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.Selling, d.Buying = assets.selling(), assets.buying()
		o.Details = d
	case OpManageBuyOffer:
		var d ManageBuyOffer
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.Selling, d.Buying = assets.selling(), assets.buying()
		o.Details = d
	case OpSetOptions:
		var d SetOptions
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		o.Details = d
	case OpAccountMerge:
		var d AccountMerge
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		o.Details = d
	case OpBumpSequence:
		var d BumpSequence
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		o.Details = d
	case OpPathPaymentStrictReceive:
		var d PathPaymentStrictReceive
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.SourceAsset, d.DestinationAsset = assets.source(), assets.destination()
		o.Details = d
	case OpPathPaymentStrictSend:
		var d PathPaymentStrictSend
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		d.SourceAsset, d.DestinationAsset = assets.source(), assets.destination()
		o.Details = d
	default:
		o.Details = Unrecognized{Raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}
