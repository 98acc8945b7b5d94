// internal/ledger/ledger.go
package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"
)

const (
	MaxNameLength     = 100
	MaxTags           = 8
	MaxTagLength      = 40
	MaxMetadataLength = 512
)

// Params freezes the platform economics at construction. The fee rate is a
// fixed constant for the whole ledger, never per-product.
type Params struct {
	FeeRateBps      int64
	ListingFee      int64 // minor units, charged once at List
	MinPrice        int64
	MaxPrice        int64
	FinalityDelay   time.Duration // events are final once older than this
	PlatformAccount Address
}

type productState struct {
	record      Product
	deprecateTx TxRef
}

// Ledger holds the canonical product/purchase/review state plus the
// append-only event log. A single mutex serializes every transition, so each
// operation either fully commits or fully aborts; there is no partial state.
type Ledger struct {
	mu       sync.Mutex
	params   Params
	now      func() time.Time
	balances map[Address]int64
	products map[ProductID]*productState
	ratings  map[ProductID]Rating
	proof    map[Address]map[ProductID]bool
	reviewed map[Address]map[ProductID]bool
	events   []Event
	byTxRef  map[TxRef]int // event log index
}

func New(params Params) *Ledger {
	if params.PlatformAccount == "" {
		params.PlatformAccount = Address("platform")
	}
	return &Ledger{
		params:   params,
		now:      time.Now,
		balances: make(map[Address]int64),
		products: make(map[ProductID]*productState),
		ratings:  make(map[ProductID]Rating),
		proof:    make(map[Address]map[ProductID]bool),
		reviewed: make(map[Address]map[ProductID]bool),
		byTxRef:  make(map[TxRef]int),
	}
}

// SetNowFunc overrides the clock, used by tests to control finality.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) Params() Params {
	return l.params
}

// Credit mints stablecoin into an account. This stands in for the deposit
// bridge and is restricted to platform operators at the API layer.
func (l *Ledger) Credit(addr Address, amount int64) error {
	if addr == "" {
		return fmt.Errorf("%w: account address is required", ErrValidation)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
	return nil
}

func (l *Ledger) BalanceOf(addr Address) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// List validates the submitted record, debits the fixed listing fee to the
// platform settlement account and creates the product in Active state.
func (l *Ledger) List(seller Address, name string, tags []string, price int64, metadataRef string) (Product, TxRef, error) {
	if err := l.validateListing(seller, name, tags, price, metadataRef); err != nil {
		return Product{}, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[seller] < l.params.ListingFee {
		return Product{}, "", ErrInsufficientAuthorization
	}

	now := l.now()
	seq := uint64(len(l.events)) + 1
	id := deriveProductID(seller, name, now, seq)
	if _, exists := l.products[id]; exists {
		// Identifier collision requires identical seller, name, nanosecond
		// timestamp and sequence; treat as a rejected duplicate listing.
		return Product{}, "", fmt.Errorf("%w: duplicate listing", ErrValidation)
	}

	l.balances[seller] -= l.params.ListingFee
	l.balances[l.params.PlatformAccount] += l.params.ListingFee

	record := Product{
		ID:          id,
		Seller:      seller,
		Name:        name,
		Tags:        append([]string(nil), tags...),
		Price:       price,
		MetadataRef: metadataRef,
		CreatedAt:   now,
	}
	l.products[id] = &productState{record: record}

	ev := l.appendEvent(EventListed, seq, now, seller)
	ev.Listed = &ListedEvent{Product: record}

	return record, ev.TxRef, nil
}

// Purchase transfers price from the buyer, splits it between platform and
// seller, bumps the cumulative counters and records proof of purchase. The
// whole transition commits atomically or not at all.
func (l *Ledger) Purchase(buyer Address, id ProductID) (Purchase, error) {
	if buyer == "" {
		return Purchase{}, fmt.Errorf("%w: buyer address is required", ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.products[id]
	if !ok {
		return Purchase{}, ErrProductNotFound
	}
	if state.record.Deprecated {
		return Purchase{}, ErrProductDeprecated
	}
	if state.record.Seller == buyer {
		return Purchase{}, ErrSelfPurchaseForbidden
	}
	if l.balances[buyer] < state.record.Price {
		return Purchase{}, ErrInsufficientFunds
	}

	price := state.record.Price
	platformFee, sellerAmount := SplitPrice(price, l.params.FeeRateBps)

	l.balances[buyer] -= price
	l.balances[l.params.PlatformAccount] += platformFee
	l.balances[state.record.Seller] += sellerAmount

	state.record.SalesCount++
	state.record.Revenue += sellerAmount

	if l.proof[buyer] == nil {
		l.proof[buyer] = make(map[ProductID]bool)
	}
	l.proof[buyer][id] = true

	now := l.now()
	seq := uint64(len(l.events)) + 1
	ev := l.appendEvent(EventPurchased, seq, now, buyer)
	ev.Purchased = &PurchasedEvent{
		ProductID:    id,
		Seller:       state.record.Seller,
		Buyer:        buyer,
		Price:        price,
		PlatformFee:  platformFee,
		SellerAmount: sellerAmount,
	}

	return Purchase{
		ProductID:    id,
		Buyer:        buyer,
		Price:        price,
		PlatformFee:  platformFee,
		SellerAmount: sellerAmount,
		Time:         now,
		TxRef:        ev.TxRef,
		Seq:          seq,
	}, nil
}

// Review folds one rating into the product aggregate. Gated by proof of
// purchase and limited to one review per buyer per product.
func (l *Ledger) Review(reviewer Address, id ProductID, rating int) (Rating, TxRef, error) {
	if reviewer == "" {
		return Rating{}, "", fmt.Errorf("%w: reviewer address is required", ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return Rating{}, "", ErrInvalidRating
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.products[id]; !ok {
		return Rating{}, "", ErrProductNotFound
	}
	if !l.proof[reviewer][id] {
		return Rating{}, "", ErrNotAPurchaser
	}
	if l.reviewed[reviewer][id] {
		return Rating{}, "", ErrDuplicateReview
	}

	agg := l.ratings[id]
	agg.Average = nextAverage(agg.Average, agg.Count, rating)
	agg.Count++
	l.ratings[id] = agg

	if l.reviewed[reviewer] == nil {
		l.reviewed[reviewer] = make(map[ProductID]bool)
	}
	l.reviewed[reviewer][id] = true

	now := l.now()
	seq := uint64(len(l.events)) + 1
	ev := l.appendEvent(EventReviewed, seq, now, reviewer)
	ev.Reviewed = &ReviewedEvent{
		ProductID: id,
		Reviewer:  reviewer,
		Rating:    rating,
		Average:   agg.Average,
		Count:     agg.Count,
	}

	return agg, ev.TxRef, nil
}

// Deprecate flips the terminal flag. Repeating the call is a pure no-op that
// returns the original transaction reference without emitting a new event.
func (l *Ledger) Deprecate(caller Address, id ProductID) (TxRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.products[id]
	if !ok {
		return "", ErrProductNotFound
	}
	if state.record.Seller != caller {
		return "", ErrNotOwner
	}
	if state.record.Deprecated {
		return state.deprecateTx, nil
	}

	state.record.Deprecated = true

	now := l.now()
	seq := uint64(len(l.events)) + 1
	ev := l.appendEvent(EventDeprecated, seq, now, caller)
	ev.Deprecated = &DeprecatedEvent{ProductID: id, Seller: caller}
	state.deprecateTx = ev.TxRef

	return ev.TxRef, nil
}

// GetProduct returns a copy of the canonical record. Deprecated products
// stay readable for reputation continuity.
func (l *Ledger) GetProduct(id ProductID) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	record := state.record
	record.Tags = append([]string(nil), state.record.Tags...)
	return record, nil
}

func (l *Ledger) GetRating(id ProductID) (Rating, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.products[id]; !ok {
		return Rating{}, ErrProductNotFound
	}
	return l.ratings[id], nil
}

func (l *Ledger) HasPurchased(addr Address, id ProductID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proof[addr][id]
}

// EventByTxRef resolves a transaction reference and reports whether the
// event has reached finality.
func (l *Ledger) EventByTxRef(ref TxRef) (Event, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byTxRef[ref]
	if !ok {
		return Event{}, false, ErrUnknownTx
	}
	ev := l.events[idx]
	return ev, l.isFinal(ev), nil
}

// FinalizedEventsAfter returns up to limit finalized events with sequence
// numbers strictly greater than seq, in ledger order. It never skips past an
// unfinalized event, so consumers see a gapless prefix.
func (l *Ledger) FinalizedEventsAfter(seq uint64, limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var out []Event
	for i := int(seq); i < len(l.events) && len(out) < limit; i++ {
		ev := l.events[i]
		if !l.isFinal(ev) {
			break
		}
		out = append(out, ev)
	}
	return out
}

func (l *Ledger) HeadSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.events))
}

func (l *Ledger) appendEvent(kind EventKind, seq uint64, at time.Time, actor Address) *Event {
	ref := deriveTxRef(kind, seq, actor, at)
	l.events = append(l.events, Event{Seq: seq, Kind: kind, TxRef: ref, Time: at})
	l.byTxRef[ref] = len(l.events) - 1
	return &l.events[len(l.events)-1]
}

func (l *Ledger) isFinal(ev Event) bool {
	return l.now().Sub(ev.Time) >= l.params.FinalityDelay
}

func (l *Ledger) validateListing(seller Address, name string, tags []string, price int64, metadataRef string) error {
	if seller == "" {
		return fmt.Errorf("%w: seller address is required", ErrValidation)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	if len(tags) < 1 || len(tags) > MaxTags {
		return fmt.Errorf("%w: between 1 and %d tags required", ErrValidation, MaxTags)
	}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag == "" || len(tag) > MaxTagLength {
			return fmt.Errorf("%w: tags must be 1-%d characters", ErrValidation, MaxTagLength)
		}
		if seen[tag] {
			return fmt.Errorf("%w: duplicate tag %q", ErrValidation, tag)
		}
		seen[tag] = true
	}
	if price < l.params.MinPrice || price > l.params.MaxPrice {
		return fmt.Errorf("%w: price must be within [%d, %d] minor units", ErrValidation, l.params.MinPrice, l.params.MaxPrice)
	}
	if len(metadataRef) > MaxMetadataLength {
		return fmt.Errorf("%w: metadata reference exceeds %d characters", ErrValidation, MaxMetadataLength)
	}
	return nil
}

// derive32 hashes a domain-separated label, a subject string and two 64-bit
// discriminants into a 32-byte identifier.
func derive32(label, subject string, a, b uint64) [32]byte {
	h := sha3.New256()
	h.Write([]byte(label))
	h.Write([]byte{0})
	h.Write([]byte(subject))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], a)
	binary.BigEndian.PutUint64(buf[8:], b)
	h.Write(buf[:])

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func deriveProductID(seller Address, name string, at time.Time, seq uint64) ProductID {
	return ProductID(derive32(string(seller), name, uint64(at.UnixNano()), seq))
}

func deriveTxRef(kind EventKind, seq uint64, actor Address, at time.Time) TxRef {
	sum := derive32(string(kind), string(actor), seq, uint64(at.UnixNano()))
	return TxRef(hex.EncodeToString(sum[:]))
}
