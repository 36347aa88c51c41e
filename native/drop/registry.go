package drop

import (
	"bytes"
	"fmt"

	"dropgate/core/events"
)

// Registry owns every administrative record of the drop core: stage
// configurations, allow-list roots, signer validation templates, the fee
// recipient and payer allow-sets, and creator payout splits. Every write is
// gated on the collection authority and re-validates its invariants before
// committing. Setters are idempotent: writing the value already on record is
// a no-op and emits nothing.
type Registry struct {
	st      State
	emitter events.Emitter
}

func NewRegistry(st State) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry
// updates. Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

// Authority returns the principal allowed to administer the collection.
func (r *Registry) Authority(collection [20]byte) ([20]byte, bool, error) {
	var authority [20]byte
	found, err := r.st.KVGet(authorityKey(collection), &authority)
	if err != nil {
		return authority, false, err
	}
	return authority, found, nil
}

// SetAuthority registers or rotates the collection authority. The first
// write claims an unowned collection; afterwards only the current authority
// may rotate it.
func (r *Registry) SetAuthority(caller, collection, authority [20]byte) error {
	if authority == ([20]byte{}) {
		return fmt.Errorf("%w: authority must not be the zero address", ErrInvalidConfig)
	}
	current, found, err := r.Authority(collection)
	if err != nil {
		return err
	}
	if found && current != caller {
		return ErrUnauthorized
	}
	if found && current == authority {
		return nil
	}
	if err := r.st.KVPut(authorityKey(collection), authority); err != nil {
		return err
	}
	r.emit(AuthorityUpdated{Collection: collection, Authority: authority})
	return nil
}

func (r *Registry) requireAuthority(caller, collection [20]byte) error {
	authority, found, err := r.Authority(collection)
	if err != nil {
		return err
	}
	if !found || authority != caller {
		return ErrUnauthorized
	}
	return nil
}

// --- stages ---

// SetStage validates and stores a stage at the given registry slot,
// replacing any previous occupant. Only public and token-gated stages are
// stored: allow-list and signed stages are bound to their configuration by
// proof or signature and enter through the allow-list root and signer
// template setters instead.
func (r *Registry) SetStage(caller, collection [20]byte, index uint64, cfg *StageConfig) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("%w: nil stage", ErrInvalidConfig)
	}
	if cfg.Kind != StageKindPublic && cfg.Kind != StageKindTokenGated {
		return fmt.Errorf("%w: only public and token-gated stages are stored by index", ErrInvalidConfig)
	}
	if err := cfg.Validate(collection); err != nil {
		return err
	}
	existing, found, err := r.GetStage(collection, index)
	if err != nil {
		return err
	}
	if found && bytes.Equal(encodeStageConfig(existing), encodeStageConfig(cfg)) {
		return nil
	}
	if err := r.st.KVPut(stageKey(collection, index), toStoredStage(cfg)); err != nil {
		return err
	}
	if !found {
		if err := r.appendStageIndex(collection, index); err != nil {
			return err
		}
	}
	r.emit(StageUpdated{Collection: collection, Index: index, Kind: cfg.Kind})
	return nil
}

// GetStage returns the stage stored at the slot, if any. An absent slot is
// reported as not found rather than as a zeroed configuration so the engine
// can never mistake it for an active stage.
func (r *Registry) GetStage(collection [20]byte, index uint64) (*StageConfig, bool, error) {
	stored := new(storedStageConfig)
	found, err := r.st.KVGet(stageKey(collection, index), stored)
	if err != nil || !found {
		return nil, false, err
	}
	return stored.toConfig(), true, nil
}

// Stages enumerates the occupied registry slots. Removal uses swap-remove,
// so enumeration order is not stable across removals.
func (r *Registry) Stages(collection [20]byte) ([]StageEntry, error) {
	indices, err := r.stageIndices(collection)
	if err != nil {
		return nil, err
	}
	entries := make([]StageEntry, 0, len(indices))
	for _, index := range indices {
		cfg, found, err := r.GetStage(collection, index)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		entries = append(entries, StageEntry{Index: index, Config: cfg})
	}
	return entries, nil
}

// RemoveStage deletes the stage and drops it from enumeration. Quota
// counters and redemption records keyed by its stage id remain queryable.
// Removing an empty slot is a no-op.
func (r *Registry) RemoveStage(caller, collection [20]byte, index uint64) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	_, found, err := r.GetStage(collection, index)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := r.st.KVDelete(stageKey(collection, index)); err != nil {
		return err
	}
	if err := r.removeStageIndex(collection, index); err != nil {
		return err
	}
	r.emit(StageRemoved{Collection: collection, Index: index})
	return nil
}

func (r *Registry) stageIndices(collection [20]byte) ([]uint64, error) {
	var indices []uint64
	if _, err := r.st.KVGet(stageIndexKey(collection), &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

func (r *Registry) appendStageIndex(collection [20]byte, index uint64) error {
	indices, err := r.stageIndices(collection)
	if err != nil {
		return err
	}
	for _, existing := range indices {
		if existing == index {
			return nil
		}
	}
	return r.st.KVPut(stageIndexKey(collection), append(indices, index))
}

func (r *Registry) removeStageIndex(collection [20]byte, index uint64) error {
	indices, err := r.stageIndices(collection)
	if err != nil {
		return err
	}
	for i, existing := range indices {
		if existing != index {
			continue
		}
		indices[i] = indices[len(indices)-1]
		indices = indices[:len(indices)-1]
		return r.st.KVPut(stageIndexKey(collection), indices)
	}
	return nil
}

// --- allow-list root ---

// AllowlistRoot returns the Merkle root committed for the collection.
func (r *Registry) AllowlistRoot(collection [20]byte) ([32]byte, bool, error) {
	var root [32]byte
	found, err := r.st.KVGet(allowRootKey(collection), &root)
	if err != nil {
		return root, false, err
	}
	return root, found, nil
}

// SetAllowlistRoot commits a new allow-list root. A zero root clears it.
func (r *Registry) SetAllowlistRoot(caller, collection [20]byte, root [32]byte) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	current, found, err := r.AllowlistRoot(collection)
	if err != nil {
		return err
	}
	if root == ([32]byte{}) {
		if !found {
			return nil
		}
		if err := r.st.KVDelete(allowRootKey(collection)); err != nil {
			return err
		}
		r.emit(AllowlistUpdated{Collection: collection, Root: root})
		return nil
	}
	if found && current == root {
		return nil
	}
	if err := r.st.KVPut(allowRootKey(collection), root); err != nil {
		return err
	}
	r.emit(AllowlistUpdated{Collection: collection, Root: root})
	return nil
}

// --- signer templates ---

// SignerTemplate returns the validation template registered for a signer.
func (r *Registry) SignerTemplate(collection, signer [20]byte) (*SignerTemplate, bool, error) {
	stored := new(storedSignerTemplate)
	found, err := r.st.KVGet(signerKey(collection, signer), stored)
	if err != nil || !found {
		return nil, false, err
	}
	return stored.toTemplate(), true, nil
}

// SetSignerTemplate registers a signer together with the parameter range it
// may vouch for.
func (r *Registry) SetSignerTemplate(caller, collection, signer [20]byte, tpl *SignerTemplate) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	if signer == ([20]byte{}) {
		return fmt.Errorf("%w: signer must not be the zero address", ErrInvalidConfig)
	}
	if err := tpl.Validate(); err != nil {
		return err
	}
	existing, found, err := r.SignerTemplate(collection, signer)
	if err != nil {
		return err
	}
	if found && templatesEqual(existing, tpl) {
		return nil
	}
	if err := r.st.KVPut(signerKey(collection, signer), toStoredTemplate(tpl)); err != nil {
		return err
	}
	if err := r.appendMember(signerIndexKey(collection), signer); err != nil {
		return err
	}
	r.emit(SignerUpdated{Collection: collection, Signer: signer})
	return nil
}

// RemoveSigner deregisters a signer. Digests already consumed stay consumed.
func (r *Registry) RemoveSigner(caller, collection, signer [20]byte) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	_, found, err := r.SignerTemplate(collection, signer)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := r.st.KVDelete(signerKey(collection, signer)); err != nil {
		return err
	}
	if err := r.removeMember(signerIndexKey(collection), signer); err != nil {
		return err
	}
	r.emit(SignerRemoved{Collection: collection, Signer: signer})
	return nil
}

// Signers enumerates the registered signer addresses.
func (r *Registry) Signers(collection [20]byte) ([][20]byte, error) {
	return r.members(signerIndexKey(collection))
}

// --- allow-sets ---

// IsFeeRecipientAllowed reports membership in the fee recipient allow-set.
func (r *Registry) IsFeeRecipientAllowed(collection, recipient [20]byte) (bool, error) {
	return r.isMember(collection, setFeeRecipients, recipient)
}

// SetFeeRecipientAllowed adds or removes a fee recipient.
func (r *Registry) SetFeeRecipientAllowed(caller, collection, recipient [20]byte, allowed bool) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	changed, err := r.setMember(collection, setFeeRecipients, recipient, allowed)
	if err != nil {
		return err
	}
	if changed {
		r.emit(FeeRecipientUpdated{Collection: collection, Recipient: recipient, Allowed: allowed})
	}
	return nil
}

// FeeRecipients enumerates the allowed fee recipients.
func (r *Registry) FeeRecipients(collection [20]byte) ([][20]byte, error) {
	return r.members(allowSetIndexKey(collection, setFeeRecipients))
}

// IsPayerAllowed reports membership in the delegated payer allow-set.
func (r *Registry) IsPayerAllowed(collection, payer [20]byte) (bool, error) {
	return r.isMember(collection, setPayers, payer)
}

// SetPayerAllowed adds or removes an allowed payer.
func (r *Registry) SetPayerAllowed(caller, collection, payer [20]byte, allowed bool) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	changed, err := r.setMember(collection, setPayers, payer, allowed)
	if err != nil {
		return err
	}
	if changed {
		r.emit(PayerUpdated{Collection: collection, Payer: payer, Allowed: allowed})
	}
	return nil
}

// Payers enumerates the allowed payers.
func (r *Registry) Payers(collection [20]byte) ([][20]byte, error) {
	return r.members(allowSetIndexKey(collection, setPayers))
}

func (r *Registry) isMember(collection [20]byte, set string, addr [20]byte) (bool, error) {
	var flag bool
	found, err := r.st.KVGet(allowSetKey(collection, set, addr), &flag)
	if err != nil {
		return false, err
	}
	return found && flag, nil
}

func (r *Registry) setMember(collection [20]byte, set string, addr [20]byte, allowed bool) (bool, error) {
	if addr == ([20]byte{}) {
		return false, fmt.Errorf("%w: %s entry must not be the zero address", ErrInvalidConfig, set)
	}
	current, err := r.isMember(collection, set, addr)
	if err != nil {
		return false, err
	}
	if current == allowed {
		return false, nil
	}
	if allowed {
		if err := r.st.KVPut(allowSetKey(collection, set, addr), true); err != nil {
			return false, err
		}
		return true, r.appendMember(allowSetIndexKey(collection, set), addr)
	}
	if err := r.st.KVDelete(allowSetKey(collection, set, addr)); err != nil {
		return false, err
	}
	return true, r.removeMember(allowSetIndexKey(collection, set), addr)
}

func (r *Registry) members(indexKey []byte) ([][20]byte, error) {
	var list [][20]byte
	if _, err := r.st.KVGet(indexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Registry) appendMember(indexKey []byte, addr [20]byte) error {
	list, err := r.members(indexKey)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == addr {
			return nil
		}
	}
	return r.st.KVPut(indexKey, append(list, addr))
}

func (r *Registry) removeMember(indexKey []byte, addr [20]byte) error {
	list, err := r.members(indexKey)
	if err != nil {
		return err
	}
	for i, existing := range list {
		if existing != addr {
			continue
		}
		list[i] = list[len(list)-1]
		list = list[:len(list)-1]
		return r.st.KVPut(indexKey, list)
	}
	return nil
}

// --- creator payouts ---

// Payouts returns the creator payout split for the collection.
func (r *Registry) Payouts(collection [20]byte) ([]CreatorPayout, error) {
	var stored []storedPayout
	if _, err := r.st.KVGet(payoutsKey(collection), &stored); err != nil {
		return nil, err
	}
	payouts := make([]CreatorPayout, 0, len(stored))
	for _, p := range stored {
		payouts = append(payouts, CreatorPayout{Address: p.Address, Bps: p.Bps})
	}
	return payouts, nil
}

// SetPayouts validates and stores the ordered creator payout split.
func (r *Registry) SetPayouts(caller, collection [20]byte, payouts []CreatorPayout) error {
	if err := r.requireAuthority(caller, collection); err != nil {
		return err
	}
	if err := ValidatePayouts(payouts); err != nil {
		return err
	}
	current, err := r.Payouts(collection)
	if err != nil {
		return err
	}
	if payoutsEqual(current, payouts) {
		return nil
	}
	stored := make([]storedPayout, 0, len(payouts))
	for _, p := range payouts {
		stored = append(stored, storedPayout{Address: p.Address, Bps: p.Bps})
	}
	if err := r.st.KVPut(payoutsKey(collection), stored); err != nil {
		return err
	}
	r.emit(PayoutsUpdated{Collection: collection, Count: len(payouts)})
	return nil
}

func templatesEqual(a, b *SignerTemplate) bool {
	if a == nil || b == nil {
		return a == b
	}
	if (a.MinPrice == nil) != (b.MinPrice == nil) {
		return false
	}
	if a.MinPrice != nil && a.MinPrice.Cmp(b.MinPrice) != 0 {
		return false
	}
	return a.MaxMaxPerWallet == b.MaxMaxPerWallet &&
		a.MinTimeStart == b.MinTimeStart &&
		a.MaxTimeEnd == b.MaxTimeEnd &&
		a.MaxStageSupply == b.MaxStageSupply &&
		a.MinFeeBps == b.MinFeeBps &&
		a.MaxFeeBps == b.MaxFeeBps &&
		a.RequireFeeRecipientRestriction == b.RequireFeeRecipientRestriction
}

func payoutsEqual(a, b []CreatorPayout) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
