package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/MatYouKy/mavinci-reserve/internal/clock"
	"github.com/MatYouKy/mavinci-reserve/internal/domain"
)

// SumFilter narrows which reservation lines count against availability.
type SumFilter struct {
	// ExcludeReservationID leaves out one reservation's own lines, so an edit
	// does not count against itself.
	ExcludeReservationID string
	// IgnoreOptional excludes lines of optional reservations ("best case").
	IgnoreOptional bool
}

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItem(ctx context.Context, itemID string) (domain.EquipmentItem, error)
	GetItems(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error)
	GetKit(ctx context.Context, kitID string) (domain.EquipmentKit, error)
	// GetItemsForUpdate locks the item rows in ascending id order; callers must
	// pass ids already sorted so overlapping reservations cannot deadlock.
	GetItemsForUpdate(ctx context.Context, itemIDs []string) ([]domain.EquipmentItem, error)
	SumReservedQuantities(ctx context.Context, itemIDs []string, interval domain.Interval, filter SumFilter) (map[string]int, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	UpdateReservation(ctx context.Context, res domain.Reservation) error
	// CancelReservation reports whether the row transitioned to cancelled.
	CancelReservation(ctx context.Context, id string, at time.Time) (bool, error)
	ListReservationsByConsumer(ctx context.Context, ct domain.ConsumerType, consumerID string) ([]domain.Reservation, error)
}

// Recorder receives reservation outcome signals for metrics.
type Recorder interface {
	ReserveOutcome(outcome string)
	AvailabilityCheck(available bool)
	InvariantClamp()
}

type nopRecorder struct{}

func (nopRecorder) ReserveOutcome(string)  {}
func (nopRecorder) AvailabilityCheck(bool) {}
func (nopRecorder) InvariantClamp()        {}

// ReservationService is the admission-control point for equipment stock: it
// validates requested reservations against current availability and commits
// them atomically, or rejects them with the full per-item shortfall.
type ReservationService struct {
	repo     ReservationRepository
	clock    clock.Clock
	logger   *log.Logger
	recorder Recorder
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:     repo,
		clock:    clk,
		logger:   log.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithLogger overrides the logger used for invariant-violation reports.
func WithLogger(l *log.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) ReservationServiceOption {
	return func(s *ReservationService) {
		if r != nil {
			s.recorder = r
		}
	}
}

type ReserveInput struct {
	ConsumerType domain.ConsumerType
	ConsumerID   string
	TargetType   domain.TargetType
	TargetID     string
	Quantity     int
	Interval     domain.Interval
	IsOptional   bool
	Tentative    bool
	Notes        string
}

type ReserveResult struct {
	Reservation domain.Reservation
	// Oversubscribed is non-empty only for tentative reservations that were
	// allowed through past a shortfall; callers must flag it.
	Oversubscribed []domain.ItemShortfall
}

func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	if err := validateReserveInput(in); err != nil {
		s.recorder.ReserveOutcome("invalid")
		return ReserveResult{}, err
	}

	now := s.clock.Now()
	var result ReserveResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		reqs, err := s.resolveRequirements(txCtx, in.TargetType, in.TargetID, in.Quantity, true)
		if err != nil {
			return err
		}

		items, err := s.lockItems(txCtx, reqs)
		if err != nil {
			return err
		}

		short, err := s.shortfall(txCtx, items, reqs, in.Interval, SumFilter{})
		if err != nil {
			return err
		}
		if len(short) > 0 && !in.Tentative {
			return &domain.OverbookingError{Shortfall: short}
		}

		res := domain.Reservation{
			ID:           newID(),
			ConsumerType: in.ConsumerType,
			ConsumerID:   in.ConsumerID,
			TargetType:   in.TargetType,
			TargetID:     in.TargetID,
			Quantity:     in.Quantity,
			Interval:     in.Interval,
			IsOptional:   in.IsOptional,
			Tentative:    in.Tentative,
			Status:       domain.ReservationStatusActive,
			Notes:        in.Notes,
			Lines:        linesFromRequirements(reqs),
			CreatedAt:    now,
		}

		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}

		result = ReserveResult{Reservation: res, Oversubscribed: short}
		return nil
	})
	if err != nil {
		s.recorder.ReserveOutcome(reserveOutcomeLabel(err))
		return ReserveResult{}, err
	}

	s.recorder.ReserveOutcome("committed")
	return result, nil
}

type ResizeInput struct {
	ReservationID string
	Quantity      int
	Interval      domain.Interval
}

// Resize re-runs the admission check with the reservation's own lines excluded,
// so a no-op resize can never be rejected by its prior allocation.
func (s *ReservationService) Resize(ctx context.Context, in ResizeInput) (domain.Reservation, error) {
	if in.ReservationID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if in.Quantity < 1 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if err := validateInterval(in.Interval); err != nil {
		return domain.Reservation{}, err
	}

	var updated domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusActive {
			return domain.ErrReservationNotFound
		}

		// Inactive targets still honor pre-existing commitments.
		reqs, err := s.resolveRequirements(txCtx, res.TargetType, res.TargetID, in.Quantity, false)
		if err != nil {
			return err
		}

		items, err := s.lockItems(txCtx, reqs)
		if err != nil {
			return err
		}

		short, err := s.shortfall(txCtx, items, reqs, in.Interval, SumFilter{ExcludeReservationID: res.ID})
		if err != nil {
			return err
		}
		if len(short) > 0 && !res.Tentative {
			return &domain.OverbookingError{Shortfall: short}
		}

		res.Quantity = in.Quantity
		res.Interval = in.Interval
		res.Lines = linesFromRequirements(reqs)

		if err := s.repo.UpdateReservation(txCtx, res); err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return updated, nil
}

// Cancel releases the held quantity immediately. It is idempotent: cancelling
// an already-cancelled reservation is a no-op, only unknown ids are errors.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return domain.ErrInvalidID
	}
	cancelled, err := s.repo.CancelReservation(ctx, reservationID, s.clock.Now())
	if err != nil {
		return err
	}
	if !cancelled {
		if _, err := s.repo.GetReservation(ctx, reservationID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	if reservationID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	return s.repo.GetReservation(ctx, reservationID)
}

func (s *ReservationService) ListReservations(ctx context.Context, ct domain.ConsumerType, consumerID string) ([]domain.Reservation, error) {
	if !ct.Valid() {
		return nil, domain.ErrInvalidConsumer
	}
	if consumerID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListReservationsByConsumer(ctx, ct, consumerID)
}

// Available computes free stock for one item over an interval. Optional
// reservations count: an optional item still occupies stock until removed.
func (s *ReservationService) Available(ctx context.Context, itemID string, interval domain.Interval, excludeReservationID string) (int, error) {
	return s.available(ctx, itemID, interval, SumFilter{ExcludeReservationID: excludeReservationID})
}

// AvailableIgnoringOptional is the best-case variant that excludes optional
// reservations from the subtraction.
func (s *ReservationService) AvailableIgnoringOptional(ctx context.Context, itemID string, interval domain.Interval, excludeReservationID string) (int, error) {
	return s.available(ctx, itemID, interval, SumFilter{ExcludeReservationID: excludeReservationID, IgnoreOptional: true})
}

func (s *ReservationService) available(ctx context.Context, itemID string, interval domain.Interval, filter SumFilter) (int, error) {
	if itemID == "" {
		return 0, domain.ErrInvalidID
	}
	if err := validateInterval(interval); err != nil {
		return 0, err
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	sums, err := s.repo.SumReservedQuantities(ctx, []string{itemID}, interval, filter)
	if err != nil {
		return 0, err
	}
	return s.clampFree(item, sums[itemID]), nil
}

type CheckAvailabilityInput struct {
	TargetType domain.TargetType
	TargetID   string
	Quantity   int
	Interval   domain.Interval
}

type AvailabilityReport struct {
	// Available reports whether the requested quantity fits in full.
	Available bool
	// Shortfall lists every item that falls short, with the missing count.
	Shortfall []domain.ItemShortfall
	// FitsWholeUnits is the largest whole number of target units the free
	// stock would satisfy over the interval.
	FitsWholeUnits int
}

// CheckAvailability answers "X of Y units free" without side effects. It is the
// sole source of truth for quantity numbers shown anywhere.
func (s *ReservationService) CheckAvailability(ctx context.Context, in CheckAvailabilityInput) (AvailabilityReport, error) {
	if in.Quantity < 1 {
		return AvailabilityReport{}, domain.ErrInvalidQuantity
	}
	if err := validateInterval(in.Interval); err != nil {
		return AvailabilityReport{}, err
	}

	perUnit, err := s.resolveRequirements(ctx, in.TargetType, in.TargetID, 1, true)
	if err != nil {
		return AvailabilityReport{}, err
	}

	ids := requirementItemIDs(perUnit)
	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return AvailabilityReport{}, err
	}
	if len(items) != len(ids) {
		return AvailabilityReport{}, domain.ErrItemNotFound
	}
	byID := make(map[string]domain.EquipmentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	sums, err := s.repo.SumReservedQuantities(ctx, ids, in.Interval, SumFilter{})
	if err != nil {
		return AvailabilityReport{}, err
	}

	report := AvailabilityReport{Available: true}
	fits := -1
	for _, req := range perUnit {
		free := s.clampFree(byID[req.ItemID], sums[req.ItemID])
		needed := req.Quantity * in.Quantity
		if needed > free {
			report.Available = false
			report.Shortfall = append(report.Shortfall, domain.ItemShortfall{
				ItemID:  req.ItemID,
				Missing: needed - free,
			})
		}
		if unitFits := free / req.Quantity; fits < 0 || unitFits < fits {
			fits = unitFits
		}
	}
	if fits > 0 {
		report.FitsWholeUnits = fits
	}
	s.recorder.AvailabilityCheck(report.Available)
	return report, nil
}

// resolveRequirements flattens the target into per-item demands. Kit targets
// go through domain expansion so the check and reserve paths share one logic.
func (s *ReservationService) resolveRequirements(ctx context.Context, tt domain.TargetType, targetID string, quantity int, requireActive bool) ([]domain.ItemRequirement, error) {
	if targetID == "" {
		return nil, domain.ErrInvalidID
	}
	switch tt {
	case domain.TargetItem:
		item, err := s.repo.GetItem(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if requireActive && !item.IsActive {
			return nil, domain.ErrInactiveTarget
		}
		return []domain.ItemRequirement{{ItemID: item.ID, Quantity: quantity}}, nil
	case domain.TargetKit:
		kit, err := s.repo.GetKit(ctx, targetID)
		if err != nil {
			if errors.Is(err, domain.ErrKitNotFound) {
				return nil, domain.ErrUnknownKit
			}
			return nil, err
		}
		if requireActive && !kit.IsActive {
			return nil, domain.ErrInactiveTarget
		}
		return kit.Expand(quantity)
	default:
		return nil, domain.ErrInvalidTarget
	}
}

func (s *ReservationService) lockItems(ctx context.Context, reqs []domain.ItemRequirement) (map[string]domain.EquipmentItem, error) {
	ids := requirementItemIDs(reqs)
	items, err := s.repo.GetItemsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		return nil, domain.ErrItemNotFound
	}
	byID := make(map[string]domain.EquipmentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}

func (s *ReservationService) shortfall(ctx context.Context, items map[string]domain.EquipmentItem, reqs []domain.ItemRequirement, interval domain.Interval, filter SumFilter) ([]domain.ItemShortfall, error) {
	sums, err := s.repo.SumReservedQuantities(ctx, requirementItemIDs(reqs), interval, filter)
	if err != nil {
		return nil, err
	}

	var short []domain.ItemShortfall
	for _, req := range reqs {
		free := s.clampFree(items[req.ItemID], sums[req.ItemID])
		if req.Quantity > free {
			short = append(short, domain.ItemShortfall{
				ItemID:  req.ItemID,
				Missing: req.Quantity - free,
			})
		}
	}
	return short, nil
}

// clampFree floors negative availability at zero. A negative number means the
// no-overbooking invariant was violated elsewhere; it is logged, not surfaced.
func (s *ReservationService) clampFree(item domain.EquipmentItem, reserved int) int {
	free := item.TotalQuantity - reserved
	if free < 0 {
		s.logger.Printf("invariant violation: item %s reserved=%d exceeds total=%d", item.ID, reserved, item.TotalQuantity)
		s.recorder.InvariantClamp()
		return 0
	}
	return free
}

func validateReserveInput(in ReserveInput) error {
	if in.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if !in.ConsumerType.Valid() || in.ConsumerID == "" {
		return domain.ErrInvalidConsumer
	}
	if !in.TargetType.Valid() {
		return domain.ErrInvalidTarget
	}
	if in.TargetID == "" {
		return domain.ErrInvalidID
	}
	return validateInterval(in.Interval)
}

func validateInterval(iv domain.Interval) error {
	if iv.Start.IsZero() {
		return domain.ErrInvalidInterval
	}
	if iv.End != nil && !iv.End.After(iv.Start) {
		return domain.ErrInvalidInterval
	}
	return nil
}

// requirementItemIDs returns the unique item ids in ascending order, the
// canonical lock order shared by every reservation.
func requirementItemIDs(reqs []domain.ItemRequirement) []string {
	seen := make(map[string]struct{}, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		if _, ok := seen[req.ItemID]; ok {
			continue
		}
		seen[req.ItemID] = struct{}{}
		ids = append(ids, req.ItemID)
	}
	sort.Strings(ids)
	return ids
}

func linesFromRequirements(reqs []domain.ItemRequirement) []domain.ReservationLine {
	lines := make([]domain.ReservationLine, 0, len(reqs))
	for _, req := range reqs {
		lines = append(lines, domain.ReservationLine{ItemID: req.ItemID, Quantity: req.Quantity})
	}
	return lines
}

func reserveOutcomeLabel(err error) string {
	var ob *domain.OverbookingError
	switch {
	case errors.As(err, &ob):
		return "overbooked"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	default:
		return "rejected"
	}
}
