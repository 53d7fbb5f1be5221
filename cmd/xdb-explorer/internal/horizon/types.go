package horizon

import (
	"encoding/json"
	"time"
)

// Account is the Horizon account resource, trimmed to the fields the
// explorer consumes.
type Account struct {
	AccountID        string    `json:"account_id"`
	Sequence         string    `json:"sequence"`
	SubentryCount    int32     `json:"subentry_count"`
	LastModifiedTime time.Time `json:"last_modified_time"`
	Balances         []Balance `json:"balances"`
	Signers          []Signer  `json:"signers"`
	Flags            Flags     `json:"flags"`
}

type Balance struct {
	Balance     string `json:"balance"`
	Limit       string `json:"limit,omitempty"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
}

// Asset returns the balance line's asset.
func (b Balance) Asset() Asset {
	return Asset{Type: b.AssetType, Code: b.AssetCode, Issuer: b.AssetIssuer}
}

type Signer struct {
	Key    string `json:"key"`
	Weight int32  `json:"weight"`
	Type   string `json:"type"`
}

type Flags struct {
	AuthRequired  bool `json:"auth_required"`
	AuthRevocable bool `json:"auth_revocable"`
	AuthImmutable bool `json:"auth_immutable"`
}

// Transaction is the Horizon transaction resource. Operations and
// MainOperationType are not part of the wire format: they are filled in by
// the client's best-effort enrichment and default to empty/"unknown" when
// the enrichment sub-fetch fails.
type Transaction struct {
	ID             string    `json:"id"`
	Hash           string    `json:"hash"`
	PagingToken    string    `json:"paging_token"`
	Successful     bool      `json:"successful"`
	Ledger         uint32    `json:"ledger"`
	CreatedAt      time.Time `json:"created_at"`
	SourceAccount  string    `json:"source_account"`
	FeeCharged     int64     `json:"fee_charged,string"`
	OperationCount int32     `json:"operation_count"`
	MemoType       string    `json:"memo_type"`
	Memo           string    `json:"memo,omitempty"`

	Operations        []Operation `json:"-"`
	MainOperationType string      `json:"-"`
}

func (t Transaction) pagingToken() string { return t.PagingToken }

// AssetStat is a record of the /assets listing.
type AssetStat struct {
	PagingToken string `json:"paging_token"`
	AssetType   string `json:"asset_type"`
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
	Amount      string `json:"amount"`
	NumAccounts int32  `json:"num_accounts"`
}

func (a AssetStat) pagingToken() string { return a.PagingToken }

// Offer is a record of the /accounts/{id}/offers listing.
type Offer struct {
	ID          string `json:"id"`
	PagingToken string `json:"paging_token"`
	Seller      string `json:"seller"`
	Selling     Asset  `json:"selling"`
	Buying      Asset  `json:"buying"`
	Amount      string `json:"amount"`
	Price       string `json:"price"`
}

func (o Offer) pagingToken() string { return o.PagingToken }

// Asset identifies a network asset. The zero Code/Issuer with Type "native"
// is the network's native asset.
type Asset struct {
	Type   string `json:"asset_type"`
	Code   string `json:"asset_code,omitempty"`
	Issuer string `json:"asset_issuer,omitempty"`
}

// NativeAssetCode is the display code of the network's native asset.
const NativeAssetCode = "XDB"

func (a Asset) Native() bool { return a.Type == "native" || a.Type == "" }

// Display returns the human-readable asset code.
func (a Asset) Display() string {
	if a.Native() {
		return NativeAssetCode
	}
	return a.Code
}

// Key returns the asset identifier used in balance maps: the native code for
// the native asset, "code:issuer" otherwise.
func (a Asset) Key() string {
	if a.Native() {
		return NativeAssetCode
	}
	return a.Code + ":" + a.Issuer
}

// record constrains page decoding to resources that carry a paging token.
type record interface {
	pagingToken() string
}

// Page is the normalized shape of one page of a Horizon listing. NextCursor
// is derived from the last record's paging token (empty when the page is
// empty) and HasMore from the presence of the response's next link.
type Page[T record] struct {
	Records    []T
	NextCursor string
	HasMore    bool
}

// collection is the raw HAL envelope Horizon wraps listings in.
type collection struct {
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Embedded struct {
		Records []json.RawMessage `json:"records"`
	} `json:"_embedded"`
}

// decodePage normalizes a raw Horizon listing response into a Page.
func decodePage[T record](data []byte) (Page[T], error) {
	var envelope collection
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{
		Records: make([]T, 0, len(envelope.Embedded.Records)),
		HasMore: envelope.Links.Next != nil && envelope.Links.Next.Href != "",
	}
	for _, raw := range envelope.Embedded.Records {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Page[T]{}, err
		}
		page.Records = append(page.Records, rec)
	}
	if len(page.Records) > 0 {
		page.NextCursor = page.Records[len(page.Records)-1].pagingToken()
	}
	return page, nil
}
