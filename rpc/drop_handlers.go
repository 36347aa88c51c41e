package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"dropgate/crypto"
	"dropgate/native/drop"
	"dropgate/observability"
)

// --- wire shapes ---

type stageConfigJSON struct {
	Kind                  string `json:"kind"`
	PriceStart            string `json:"priceStart"`
	PriceEnd              string `json:"priceEnd"`
	TimeStart             int64  `json:"timeStart"`
	TimeEnd               int64  `json:"timeEnd"`
	PaymentToken          string `json:"paymentToken,omitempty"`
	FromTokenID           uint64 `json:"fromTokenId"`
	ToTokenID             uint64 `json:"toTokenId"`
	MaxPerWallet          uint64 `json:"maxPerWallet"`
	MaxPerWalletPerToken  uint64 `json:"maxPerWalletPerToken,omitempty"`
	MaxSupplyForStage     uint64 `json:"maxSupplyForStage"`
	FeeBps                uint32 `json:"feeBps"`
	RestrictFeeRecipients bool   `json:"restrictFeeRecipients"`
	GatingCollection      string `json:"gatingCollection,omitempty"`
	MaxPerRedeemedToken   uint64 `json:"maxPerRedeemedToken,omitempty"`
}

type signerTemplateJSON struct {
	MinPrice                       string `json:"minPrice"`
	MaxMaxPerWallet                uint64 `json:"maxMaxPerWallet"`
	MinTimeStart                   int64  `json:"minTimeStart"`
	MaxTimeEnd                     int64  `json:"maxTimeEnd"`
	MaxStageSupply                 uint64 `json:"maxStageSupply"`
	MinFeeBps                      uint32 `json:"minFeeBps"`
	MaxFeeBps                      uint32 `json:"maxFeeBps"`
	RequireFeeRecipientRestriction bool   `json:"requireFeeRecipientRestriction"`
}

type payoutJSON struct {
	Address string `json:"address"`
	Bps     uint32 `json:"bps"`
}

type receiptJSON struct {
	Collection     string         `json:"collection"`
	Payer          string         `json:"payer"`
	Minter         string         `json:"minter"`
	FeeRecipient   string         `json:"feeRecipient"`
	StageID        string         `json:"stageId"`
	StageKind      string         `json:"stageKind"`
	Items          []mintItemJSON `json:"items"`
	Quantity       uint64         `json:"quantity"`
	UnitPrice      string         `json:"unitPrice"`
	PaymentToken   string         `json:"paymentToken,omitempty"`
	FeeBps         uint32         `json:"feeBps"`
	Total          string         `json:"total"`
	FeeAmount      string         `json:"feeAmount"`
	CreatorAmounts []payoutAmount `json:"creatorAmounts"`
	Refund         string         `json:"refund,omitempty"`
}

type mintItemJSON struct {
	TokenID  uint64 `json:"tokenId"`
	Quantity uint64 `json:"quantity"`
}

type payoutAmount struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// --- param decoding helpers ---

func parseParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single params object")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid params: %v", err)
	}
	return nil
}

func decodeAddr(value, field string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("%s is required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid %s: %v", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func decodeOptionalAddr(value, field string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	return decodeAddr(value, field)
}

func decodeHexBytes(value, field string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", field, err)
	}
	return raw, nil
}

func decodeHash(value, field string) ([32]byte, error) {
	var out [32]byte
	raw, err := decodeHexBytes(value, field)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("%s must be 32 bytes", field)
	}
	copy(out[:], raw)
	return out, nil
}

func decodeBig(value, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: must be a non-negative decimal", field)
	}
	return parsed, nil
}

func parseStageKind(value string) (drop.StageKind, error) {
	switch strings.TrimSpace(value) {
	case "public":
		return drop.StageKindPublic, nil
	case "allowlist":
		return drop.StageKindAllowList, nil
	case "tokenGated":
		return drop.StageKindTokenGated, nil
	case "signed":
		return drop.StageKindSigned, nil
	default:
		return drop.StageKindUnknown, fmt.Errorf("unknown stage kind %q", value)
	}
}

func stageConfigFromJSON(in *stageConfigJSON) (*drop.StageConfig, error) {
	kind, err := parseStageKind(in.Kind)
	if err != nil {
		return nil, err
	}
	priceStart, err := decodeBig(in.PriceStart, "priceStart")
	if err != nil {
		return nil, err
	}
	priceEnd, err := decodeBig(in.PriceEnd, "priceEnd")
	if err != nil {
		return nil, err
	}
	paymentToken, err := decodeOptionalAddr(in.PaymentToken, "paymentToken")
	if err != nil {
		return nil, err
	}
	gating, err := decodeOptionalAddr(in.GatingCollection, "gatingCollection")
	if err != nil {
		return nil, err
	}
	return &drop.StageConfig{
		Kind:                  kind,
		PriceStart:            priceStart,
		PriceEnd:              priceEnd,
		TimeStart:             in.TimeStart,
		TimeEnd:               in.TimeEnd,
		PaymentToken:          paymentToken,
		FromTokenID:           in.FromTokenID,
		ToTokenID:             in.ToTokenID,
		MaxPerWallet:          in.MaxPerWallet,
		MaxPerWalletPerToken:  in.MaxPerWalletPerToken,
		MaxSupplyForStage:     in.MaxSupplyForStage,
		FeeBps:                in.FeeBps,
		RestrictFeeRecipients: in.RestrictFeeRecipients,
		GatingCollection:      gating,
		MaxPerRedeemedToken:   in.MaxPerRedeemedToken,
	}, nil
}

func stageConfigToJSON(cfg *drop.StageConfig) *stageConfigJSON {
	out := &stageConfigJSON{
		Kind:                  cfg.Kind.String(),
		PriceStart:            bigString(cfg.PriceStart),
		PriceEnd:              bigString(cfg.PriceEnd),
		TimeStart:             cfg.TimeStart,
		TimeEnd:               cfg.TimeEnd,
		FromTokenID:           cfg.FromTokenID,
		ToTokenID:             cfg.ToTokenID,
		MaxPerWallet:          cfg.MaxPerWallet,
		MaxPerWalletPerToken:  cfg.MaxPerWalletPerToken,
		MaxSupplyForStage:     cfg.MaxSupplyForStage,
		FeeBps:                cfg.FeeBps,
		RestrictFeeRecipients: cfg.RestrictFeeRecipients,
		MaxPerRedeemedToken:   cfg.MaxPerRedeemedToken,
	}
	if cfg.PaymentToken != ([20]byte{}) {
		out.PaymentToken = addrString(cfg.PaymentToken)
	}
	if cfg.GatingCollection != ([20]byte{}) {
		out.GatingCollection = addrString(cfg.GatingCollection)
	}
	return out
}

func receiptToJSON(receipt *drop.Receipt) *receiptJSON {
	items := make([]mintItemJSON, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		items = append(items, mintItemJSON{TokenID: item.TokenID, Quantity: item.Quantity})
	}
	creators := make([]payoutAmount, 0, len(receipt.CreatorAmounts))
	for _, amount := range receipt.CreatorAmounts {
		creators = append(creators, payoutAmount{
			Address: addrString(amount.Address),
			Amount:  bigString(amount.Amount),
		})
	}
	out := &receiptJSON{
		Collection:     addrString(receipt.Collection),
		Payer:          addrString(receipt.Payer),
		Minter:         addrString(receipt.Minter),
		FeeRecipient:   addrString(receipt.FeeRecipient),
		StageID:        "0x" + hex.EncodeToString(receipt.StageID[:]),
		StageKind:      receipt.StageKind.String(),
		Items:          items,
		Quantity:       receipt.Quantity,
		UnitPrice:      bigString(receipt.UnitPrice),
		FeeBps:         receipt.FeeBps,
		Total:          bigString(receipt.Total),
		FeeAmount:      bigString(receipt.FeeAmount),
		CreatorAmounts: creators,
	}
	if receipt.PaymentToken != ([20]byte{}) {
		out.PaymentToken = addrString(receipt.PaymentToken)
	}
	if receipt.Refund != nil && receipt.Refund.Sign() > 0 {
		out.Refund = receipt.Refund.String()
	}
	return out
}

func addrString(addr [20]byte) string {
	return crypto.NewAddress(crypto.DropPrefix, addr[:]).String()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// moduleError maps drop module failures onto JSON-RPC error codes. Caller
// mistakes surface as invalid params; authority failures as unauthorized;
// everything else as a server error.
func moduleError(w http.ResponseWriter, id interface{}, err error) int {
	switch {
	case errors.Is(err, drop.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
		return http.StatusForbidden
	case errors.Is(err, drop.ErrInvalidConfig),
		errors.Is(err, drop.ErrStageNotFound),
		errors.Is(err, drop.ErrStageKindMismatch),
		errors.Is(err, drop.ErrZeroQuantity),
		errors.Is(err, drop.ErrDuplicateTokenID),
		errors.Is(err, drop.ErrTokenOutOfRange):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	default:
		writeError(w, http.StatusBadRequest, id, codeServerError, err.Error(), nil)
		return http.StatusBadRequest
	}
}

// --- open methods ---

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		Collection string `json:"collection"`
		Payer      string `json:"payer"`
		Payload    string `json:"payload"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	collection, err := decodeAddr(params.Collection, "collection")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	payer, err := decodeAddr(params.Payer, "payer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	payload, err := decodeHexBytes(params.Payload, "payload")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}

	receipt, err := s.engine.AuthorizeMint(collection, payer, payload)
	if err != nil {
		observability.Mint().ObserveMint("unknown", 0, nil, err)
		return moduleError(w, req.ID, err)
	}
	observability.Mint().ObserveMint(receipt.StageKind.String(), receipt.Quantity, receipt.Total, nil)
	writeResult(w, req.ID, receiptToJSON(receipt))
	return http.StatusOK
}

func (s *Server) handleGetStage(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		Collection string `json:"collection"`
		Index      uint64 `json:"index"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	collection, err := decodeAddr(params.Collection, "collection")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	cfg, found, err := s.registry.GetStage(collection, params.Index)
	if err != nil {
		return moduleError(w, req.ID, err)
	}
	if !found {
		return moduleError(w, req.ID, drop.ErrStageNotFound)
	}
	writeResult(w, req.ID, stageConfigToJSON(cfg))
	return http.StatusOK
}

func (s *Server) handleStages(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		Collection string `json:"collection"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	collection, err := decodeAddr(params.Collection, "collection")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	entries, err := s.registry.Stages(collection)
	if err != nil {
		return moduleError(w, req.ID, err)
	}
	type stageEntryJSON struct {
		Index uint64           `json:"index"`
		Stage *stageConfigJSON `json:"stage"`
	}
	out := make([]stageEntryJSON, 0, len(entries))
	for _, entry := range entries {
		out = append(out, stageEntryJSON{Index: entry.Index, Stage: stageConfigToJSON(entry.Config)})
	}
	writeResult(w, req.ID, out)
	return http.StatusOK
}

func (s *Server) handleQuota(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		Collection string `json:"collection"`
		Scope      string `json:"scope"`
		Wallet     string `json:"wallet,omitempty"`
		TokenID    uint64 `json:"tokenId,omitempty"`
		StageID    string `json:"stageId,omitempty"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	collection, err := decodeAddr(params.Collection, "collection")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	key := drop.QuotaKey{Collection: collection, TokenID: params.TokenID}
	switch strings.TrimSpace(params.Scope) {
	case "wallet":
		key.Scope = drop.ScopeWallet
	case "walletToken":
		key.Scope = drop.ScopeWalletToken
	case "stage":
		key.Scope = drop.ScopeStage
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("unknown quota scope %q", params.Scope), nil)
		return http.StatusBadRequest
	}
	if key.Scope != drop.ScopeStage {
		wallet, err := decodeAddr(params.Wallet, "wallet")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return http.StatusBadRequest
		}
		key.Wallet = wallet
	}
	stageID, err := decodeHash(params.StageID, "stageId")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	key.StageID = drop.StageID(stageID)

	total, err := s.engine.Ledger().Total(key)
	if err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]uint64{"total": total})
	return http.StatusOK
}

func (s *Server) handleRedemptions(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		Collection string `json:"collection"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	collection, err := decodeAddr(params.Collection, "collection")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	records, err := s.engine.Redemptions(collection)
	if err != nil {
		return moduleError(w, req.ID, err)
	}
	type redemptionJSON struct {
		GatingCollection string `json:"gatingCollection"`
		GatingTokenID    uint64 `json:"gatingTokenId"`
		RedeemedCount    uint64 `json:"redeemedCount"`
	}
	out := make([]redemptionJSON, 0, len(records))
	for _, record := range records {
		out = append(out, redemptionJSON{
			GatingCollection: addrString(record.GatingCollection),
			GatingTokenID:    record.GatingTokenID,
			RedeemedCount:    record.RedeemedCount,
		})
	}
	writeResult(w, req.ID, out)
	return http.StatusOK
}

// --- admin methods ---

type callerParams struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
}

func (p *callerParams) decode() (caller, collection [20]byte, err error) {
	caller, err = decodeAddr(p.Caller, "caller")
	if err != nil {
		return
	}
	collection, err = decodeAddr(p.Collection, "collection")
	return
}

func (s *Server) handleSetAuthority(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Authority string `json:"authority"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	authority, err := decodeAddr(params.Authority, "authority")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.SetAuthority(caller, collection, authority); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetStage(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Index uint64           `json:"index"`
		Stage *stageConfigJSON `json:"stage"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if params.Stage == nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "stage is required", nil)
		return http.StatusBadRequest
	}
	cfg, err := stageConfigFromJSON(params.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.SetStage(caller, collection, params.Index, cfg); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleRemoveStage(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Index uint64 `json:"index"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.RemoveStage(caller, collection, params.Index); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetAllowlistRoot(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Root string `json:"root"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	var root [32]byte
	if strings.TrimSpace(params.Root) != "" {
		root, err = decodeHash(params.Root, "root")
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return http.StatusBadRequest
		}
	}
	if err := s.registry.SetAllowlistRoot(caller, collection, root); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetSignerTemplate(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Signer   string              `json:"signer"`
		Template *signerTemplateJSON `json:"template"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	signer, err := decodeAddr(params.Signer, "signer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if params.Template == nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "template is required", nil)
		return http.StatusBadRequest
	}
	minPrice, err := decodeBig(params.Template.MinPrice, "minPrice")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	tpl := &drop.SignerTemplate{
		MinPrice:                       minPrice,
		MaxMaxPerWallet:                params.Template.MaxMaxPerWallet,
		MinTimeStart:                   params.Template.MinTimeStart,
		MaxTimeEnd:                     params.Template.MaxTimeEnd,
		MaxStageSupply:                 params.Template.MaxStageSupply,
		MinFeeBps:                      params.Template.MinFeeBps,
		MaxFeeBps:                      params.Template.MaxFeeBps,
		RequireFeeRecipientRestriction: params.Template.RequireFeeRecipientRestriction,
	}
	if err := s.registry.SetSignerTemplate(caller, collection, signer, tpl); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleRemoveSigner(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Signer string `json:"signer"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	signer, err := decodeAddr(params.Signer, "signer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.RemoveSigner(caller, collection, signer); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetFeeRecipient(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Recipient string `json:"recipient"`
		Allowed   bool   `json:"allowed"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	recipient, err := decodeAddr(params.Recipient, "recipient")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.SetFeeRecipientAllowed(caller, collection, recipient, params.Allowed); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetPayer(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Payer   string `json:"payer"`
		Allowed bool   `json:"allowed"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	payer, err := decodeAddr(params.Payer, "payer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	if err := s.registry.SetPayerAllowed(caller, collection, payer, params.Allowed); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}

func (s *Server) handleSetPayouts(w http.ResponseWriter, req *RPCRequest) int {
	var params struct {
		callerParams
		Payouts []payoutJSON `json:"payouts"`
	}
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	caller, collection, err := params.decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return http.StatusBadRequest
	}
	payouts := make([]drop.CreatorPayout, 0, len(params.Payouts))
	for i, payout := range params.Payouts {
		addr, err := decodeAddr(payout.Address, fmt.Sprintf("payouts[%d].address", i))
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return http.StatusBadRequest
		}
		payouts = append(payouts, drop.CreatorPayout{Address: addr, Bps: payout.Bps})
	}
	if err := s.registry.SetPayouts(caller, collection, payouts); err != nil {
		return moduleError(w, req.ID, err)
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
	return http.StatusOK
}
