package app

import (
	"context"
	"errors"
	"time"

	"github.com/MatYouKy/mavinci-reserve/internal/clock"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

type AttachmentRepository interface {
	CreateAttachment(ctx context.Context, a domain.ProductEquipmentAttachment) error
	GetAttachment(ctx context.Context, id string) (domain.ProductEquipmentAttachment, error)
	ListAttachmentsByProduct(ctx context.Context, productID string) ([]domain.ProductEquipmentAttachment, error)
	MarkReserved(ctx context.Context, id, reservationID string) error
	MarkReleased(ctx context.Context, id string, at time.Time) error
}

// Coordinator is the minimal reservation surface the attachment layer needs.
type Coordinator interface {
	Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error)
	Cancel(ctx context.Context, reservationID string) error
}

// CatalogReader resolves attachment targets at attach time.
type CatalogReader interface {
	GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error)
	GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error)
}

// AttachmentService owns the product↔equipment templates. Attaching never
// consults the coordinator; only placing the product on a dated event does.
type AttachmentService struct {
	repo        AttachmentRepository
	catalog     CatalogReader
	coordinator Coordinator
	clock       clock.Clock
}

func NewAttachmentService(repo AttachmentRepository, catalog CatalogReader, coordinator Coordinator, clk clock.Clock) *AttachmentService {
	return &AttachmentService{
		repo:        repo,
		catalog:     catalog,
		coordinator: coordinator,
		clock:       clk,
	}
}

type AttachInput struct {
	ProductID  string
	TargetType domain.TargetType
	TargetID   string
	Quantity   int
	IsOptional bool
	Notes      string
}

func (s *AttachmentService) Attach(ctx context.Context, in AttachInput) (domain.ProductEquipmentAttachment, error) {
	if in.ProductID == "" || in.TargetID == "" {
		return domain.ProductEquipmentAttachment{}, domain.ErrInvalidID
	}
	if in.Quantity < 1 {
		return domain.ProductEquipmentAttachment{}, domain.ErrInvalidQuantity
	}

	att := domain.ProductEquipmentAttachment{
		ID:         newID(),
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		IsOptional: in.IsOptional,
		Notes:      in.Notes,
		Status:     domain.AttachmentStatusUnscheduled,
		CreatedAt:  s.clock.Now(),
	}

	switch in.TargetType {
	case domain.TargetItem:
		item, err := s.catalog.GetItem(ctx, in.TargetID)
		if err != nil {
			return domain.ProductEquipmentAttachment{}, err
		}
		if !item.IsActive {
			return domain.ProductEquipmentAttachment{}, domain.ErrInactiveTarget
		}
		att.ItemID = item.ID
	case domain.TargetKit:
		kit, err := s.catalog.GetKit(ctx, in.TargetID)
		if err != nil {
			if errors.Is(err, domain.ErrKitNotFound) {
				return domain.ProductEquipmentAttachment{}, domain.ErrUnknownKit
			}
			return domain.ProductEquipmentAttachment{}, err
		}
		if !kit.IsActive {
			return domain.ProductEquipmentAttachment{}, domain.ErrInactiveTarget
		}
		att.KitID = kit.ID
	default:
		return domain.ProductEquipmentAttachment{}, domain.ErrInvalidTarget
	}

	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		return domain.ProductEquipmentAttachment{}, err
	}
	return att, nil
}

func (s *AttachmentService) ListAttachments(ctx context.Context, productID string) ([]domain.ProductEquipmentAttachment, error) {
	if productID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListAttachmentsByProduct(ctx, productID)
}

type MaterializeInput struct {
	ProductID string
	EventID   string
	Interval  domain.Interval
}

type AttachmentOutcome struct {
	AttachmentID  string
	ReservationID string
	Reserved      bool
	Mandatory     bool
	Conflicts     []domain.ItemShortfall
	Failure       string
}

type MaterializeResult struct {
	Outcomes []AttachmentOutcome
	// Blocked means a mandatory attachment could not be reserved; nothing was
	// committed and the operator must resolve or mark the line optional.
	Blocked bool
}

// MaterializeProduct turns every unscheduled attachment of a product into a
// dated reservation over the event's interval. Conflicts are reported per
// attachment instead of failing the whole placement; a conflicted mandatory
// attachment blocks the placement and rolls back the reservations already made.
func (s *AttachmentService) MaterializeProduct(ctx context.Context, in MaterializeInput) (MaterializeResult, error) {
	if in.ProductID == "" || in.EventID == "" {
		return MaterializeResult{}, domain.ErrInvalidID
	}
	if err := validateInterval(in.Interval); err != nil {
		return MaterializeResult{}, err
	}

	attachments, err := s.repo.ListAttachmentsByProduct(ctx, in.ProductID)
	if err != nil {
		return MaterializeResult{}, err
	}

	var result MaterializeResult
	reserved := make(map[string]string) // attachment id -> reservation id

	for _, att := range attachments {
		if att.Status != domain.AttachmentStatusUnscheduled {
			continue
		}

		outcome := AttachmentOutcome{
			AttachmentID: att.ID,
			Mandatory:    !att.IsOptional,
		}

		res, err := s.coordinator.Reserve(ctx, ReserveInput{
			ConsumerType: domain.ConsumerEvent,
			ConsumerID:   in.EventID,
			TargetType:   att.TargetType(),
			TargetID:     att.TargetID(),
			Quantity:     att.Quantity,
			Interval:     in.Interval,
			IsOptional:   att.IsOptional,
			Notes:        att.Notes,
		})
		switch {
		case err == nil:
			outcome.Reserved = true
			outcome.ReservationID = res.Reservation.ID
			reserved[att.ID] = res.Reservation.ID
		default:
			var ob *domain.OverbookingError
			if errors.As(err, &ob) {
				outcome.Conflicts = ob.Shortfall
			} else if errors.Is(err, domain.ErrInactiveTarget) {
				outcome.Failure = err.Error()
			} else {
				// Busy, storage failures: abort and roll back what we did.
				s.rollback(ctx, reserved)
				return MaterializeResult{}, err
			}
			if !att.IsOptional {
				result.Blocked = true
			}
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.Blocked {
		s.rollback(ctx, reserved)
		for i := range result.Outcomes {
			result.Outcomes[i].Reserved = false
			result.Outcomes[i].ReservationID = ""
		}
		return result, nil
	}

	for attID, resID := range reserved {
		if err := s.repo.MarkReserved(ctx, attID, resID); err != nil {
			return MaterializeResult{}, err
		}
	}
	return result, nil
}

// ReleaseProduct cancels every materialized reservation of the product and
// marks the attachments released. Released attachments never go back to
// reserved; a fresh reservation must be created instead.
func (s *AttachmentService) ReleaseProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.ErrInvalidID
	}
	attachments, err := s.repo.ListAttachmentsByProduct(ctx, productID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for _, att := range attachments {
		if att.Status != domain.AttachmentStatusReserved {
			continue
		}
		if err := s.coordinator.Cancel(ctx, att.ReservationID); err != nil {
			return err
		}
		if err := s.repo.MarkReleased(ctx, att.ID, now); err != nil {
			return err
		}
	}
	return nil
}

// Detach removes one attachment from its product, cancelling the materialized
// reservation if any. Detaching an already-released attachment is a no-op.
func (s *AttachmentService) Detach(ctx context.Context, attachmentID string) error {
	if attachmentID == "" {
		return domain.ErrInvalidID
	}
	att, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	if att.Status == domain.AttachmentStatusReleased {
		return nil
	}
	if att.Status == domain.AttachmentStatusReserved {
		if err := s.coordinator.Cancel(ctx, att.ReservationID); err != nil {
			return err
		}
	}
	return s.repo.MarkReleased(ctx, att.ID, s.clock.Now())
}

func (s *AttachmentService) rollback(ctx context.Context, reserved map[string]string) {
	for _, resID := range reserved {
		// Cancel is idempotent; a failed rollback leaves a cancellable row.
		_ = s.coordinator.Cancel(ctx, resID)
	}
}
