// internal/services/projection_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
)

// ErrMalformedEvent marks an event the projection can never apply, no matter
// how often it is retried: the defect is in the event itself, not in the
// store. Callers use it to tell permanent failures apart from transient
// database faults, which must always be retried.
var ErrMalformedEvent = errors.New("malformed ledger event")

// ProjectionService turns ledger events into mirror-store rows. Every apply
// is idempotent, so the chain follower and the receipt intake path can both
// deliver the same fact in any order, or twice, and the mirror converges to
// one logical effect. Arbitration lives in the storage layer: the purchases
// primary key on tx_ref makes the first writer win and the second a no-op.
type ProjectionService struct {
	db *gorm.DB
}

func NewProjectionService(db *gorm.DB) *ProjectionService {
	return &ProjectionService{db: db}
}

// Apply projects one event inside the supplied transaction. The switch is
// total over the event variants; an unknown kind is a permanent error the
// caller must surface, not retry.
func (s *ProjectionService) Apply(tx *gorm.DB, ev ledger.Event, source models.IngestSource) error {
	switch ev.Kind {
	case ledger.EventListed:
		if ev.Listed == nil {
			return fmt.Errorf("%w: listed event %d has no payload", ErrMalformedEvent, ev.Seq)
		}
		return s.applyListed(tx, ev, source)
	case ledger.EventPurchased:
		if ev.Purchased == nil {
			return fmt.Errorf("%w: purchased event %d has no payload", ErrMalformedEvent, ev.Seq)
		}
		return s.applyPurchased(tx, ev, source)
	case ledger.EventReviewed:
		if ev.Reviewed == nil {
			return fmt.Errorf("%w: reviewed event %d has no payload", ErrMalformedEvent, ev.Seq)
		}
		return s.applyReviewed(tx, ev, source)
	case ledger.EventDeprecated:
		if ev.Deprecated == nil {
			return fmt.Errorf("%w: deprecated event %d has no payload", ErrMalformedEvent, ev.Seq)
		}
		return s.applyDeprecated(tx, ev, source)
	default:
		return fmt.Errorf("%w: unhandled event kind %q at seq %d", ErrMalformedEvent, ev.Kind, ev.Seq)
	}
}

// applyListed inserts the initial product row, ignoring replays. Counters
// start at zero; they are only ever moved by purchase projections, so a
// late-arriving Listed row never resets effects already applied.
func (s *ProjectionService) applyListed(tx *gorm.DB, ev ledger.Event, source models.IngestSource) error {
	p := ev.Listed.Product
	row := models.Product{
		ProductID:   p.ID.Hex(),
		Seller:      string(p.Seller),
		Name:        p.Name,
		Tags:        pq.StringArray(p.Tags),
		Price:       p.Price,
		MetadataRef: p.MetadataRef,
		ListedAt:    p.CreatedAt,
		LedgerSeq:   ev.Seq,
		Source:      source,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to project listed event %d: %w", ev.Seq, err)
	}
	return nil
}

// EnsureProduct inserts a zero-counter product snapshot if no row exists
// yet. The receipt path uses it when a purchase confirms before the follower
// has projected the listing.
func (s *ProjectionService) EnsureProduct(tx *gorm.DB, p ledger.Product, source models.IngestSource) error {
	row := models.Product{
		ProductID:   p.ID.Hex(),
		Seller:      string(p.Seller),
		Name:        p.Name,
		Tags:        pq.StringArray(p.Tags),
		Price:       p.Price,
		MetadataRef: p.MetadataRef,
		Deprecated:  p.Deprecated,
		ListedAt:    p.CreatedAt,
		Source:      source,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to ensure product row %s: %w", p.ID.Hex(), err)
	}
	return nil
}

// applyPurchased inserts the purchase fact keyed by tx ref, and only when
// the insert actually landed applies the counter increments. Both writes
// share the caller's transaction, so the purchase row and its counter
// effects commit or roll back together.
func (s *ProjectionService) applyPurchased(tx *gorm.DB, ev ledger.Event, source models.IngestSource) error {
	p := ev.Purchased
	row := models.Purchase{
		TxRef:        string(ev.TxRef),
		ProductID:    p.ProductID.Hex(),
		Buyer:        string(p.Buyer),
		Amount:       p.Price,
		PlatformFee:  p.PlatformFee,
		SellerAmount: p.SellerAmount,
		LedgerSeq:    ev.Seq,
		OccurredAt:   ev.Time,
		Source:       source,
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("failed to project purchased event %d: %w", ev.Seq, res.Error)
	}
	if res.RowsAffected == 0 {
		// The other ingestion path already applied this tx ref.
		return nil
	}

	err := tx.Model(&models.Product{}).
		Where("product_id = ?", p.ProductID.Hex()).
		UpdateColumns(map[string]interface{}{
			"sales_count": gorm.Expr("sales_count + 1"),
			"revenue":     gorm.Expr("revenue + ?", p.SellerAmount),
			"ledger_seq":  ev.Seq,
			"updated_at":  time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to apply purchase counters for event %d: %w", ev.Seq, err)
	}
	return nil
}

// applyReviewed overwrites the aggregate with the full recomputed value the
// event carries. The ledger_seq guard keeps a replayed older event from
// regressing a newer aggregate.
func (s *ProjectionService) applyReviewed(tx *gorm.DB, ev ledger.Event, source models.IngestSource) error {
	r := ev.Reviewed
	row := models.Rating{
		ProductID:   r.ProductID.Hex(),
		Average:     r.Average,
		ReviewCount: r.Count,
		LedgerSeq:   ev.Seq,
		Source:      source,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"average":      r.Average,
			"review_count": r.Count,
			"ledger_seq":   ev.Seq,
			"source":       source,
			"updated_at":   time.Now(),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "ratings", Name: "ledger_seq"}, Value: ev.Seq},
		}},
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to project reviewed event %d: %w", ev.Seq, err)
	}
	return nil
}

// applyDeprecated sets the terminal flag, set-if-unset.
func (s *ProjectionService) applyDeprecated(tx *gorm.DB, ev ledger.Event, source models.IngestSource) error {
	err := tx.Model(&models.Product{}).
		Where("product_id = ? AND deprecated = ?", ev.Deprecated.ProductID.Hex(), false).
		UpdateColumns(map[string]interface{}{
			"deprecated": true,
			"ledger_seq": ev.Seq,
			"source":     source,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to project deprecated event %d: %w", ev.Seq, err)
	}
	return nil
}
