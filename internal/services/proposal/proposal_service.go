package proposal

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/db"
	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/profile"
	"github.com/swapquest/swapquest-api/internal/storage"
	"github.com/swapquest/swapquest-api/internal/utils"
)

// ProposalService owns the swap-proposal state machine. PENDING is the only
// non-terminal state; acceptance serializes on the item status column via
// compare-and-set so two competing accepts can never both win.
type ProposalService struct {
	cfg        *config.Config
	store      storage.Store
	profiles   *profile.Resolver
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewProposalService creates a new ProposalService
func NewProposalService(cfg *config.Config, store storage.Store, profiles *profile.Resolver) *ProposalService {
	return &ProposalService{
		cfg:        cfg,
		store:      store,
		profiles:   profiles,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		now:        time.Now,
	}
}

type proposeRequest struct {
	TargetItemID string               `json:"target_item_id"`
	OfferKind    string               `json:"offer_kind"`
	OfferItemID  string               `json:"offer_item_id"`
	OfferService *models.ServiceOffer `json:"offer_service"`
	Message      string               `json:"message"`
}

// validateOffer checks the offer shape: exactly one of offer_item_id /
// offer_service, matching offer_kind
func validateOffer(req *proposeRequest) *models.AppError {
	switch models.OfferKind(req.OfferKind) {
	case models.OfferKindItem:
		if req.OfferItemID == "" {
			return models.NewValidationError("offer_item_id is required for item offers")
		}
		if req.OfferService != nil {
			return models.NewValidationError("offer_service must be empty for item offers")
		}
	case models.OfferKindService:
		if req.OfferService == nil {
			return models.NewValidationError("offer_service is required for service offers")
		}
		if req.OfferItemID != "" {
			return models.NewValidationError("offer_item_id must be empty for service offers")
		}
		if req.OfferService.Title == "" {
			return models.NewValidationError("offer_service.title is required")
		}
		if req.OfferService.Description == "" {
			return models.NewValidationError("offer_service.description is required")
		}
	default:
		return models.NewValidationError("offer_kind must be item or service")
	}
	return nil
}

// Propose opens a PENDING proposal against a target listing
func (s *ProposalService) Propose(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	proposerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req proposeRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		return models.Respond(c, models.NewValidationError("invalid request body"))
	}

	if appErr := validateOffer(&req); appErr != nil {
		return models.Respond(c, appErr)
	}

	targetItemID, err := uuid.Parse(req.TargetItemID)
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid target_item_id"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	target, err := s.store.GetItem(ctx, targetItemID)
	if err != nil {
		log.Printf("failed to load target item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if target == nil || target.Status == models.ItemStatusRemoved {
		return models.Respond(c, models.NewNotFoundError("item", targetItemID))
	}
	if target.OwnerID == proposerID {
		return models.Respond(c, models.NewConflictError("you cannot propose a trade on your own item"))
	}
	if target.Status != models.ItemStatusActive {
		return models.Respond(c, models.NewConflictError("target item is not active"))
	}

	now := s.now()
	proposal := &models.Proposal{
		ID:           uuid.New(),
		TargetItemID: targetItemID,
		ProposerID:   proposerID,
		OfferKind:    models.OfferKind(req.OfferKind),
		Message:      req.Message,
		Status:       models.ProposalStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.ProposalTTL),
		UpdatedAt:    now,
	}

	if proposal.OfferKind == models.OfferKindItem {
		offerItemID, err := uuid.Parse(req.OfferItemID)
		if err != nil {
			return models.Respond(c, models.NewValidationError("invalid offer_item_id"))
		}
		offerItem, err := s.store.GetItem(ctx, offerItemID)
		if err != nil {
			log.Printf("failed to load offer item: %v", err)
			return models.Respond(c, models.NewInternalError(err))
		}
		if offerItem == nil || offerItem.Status == models.ItemStatusRemoved {
			return models.Respond(c, models.NewNotFoundError("item", offerItemID))
		}
		if offerItem.OwnerID != proposerID {
			return models.Respond(c, models.NewConflictError("you do not own the offered item"))
		}
		if offerItem.Status != models.ItemStatusActive {
			return models.Respond(c, models.NewConflictError("offered item is not active"))
		}
		proposal.OfferItemID = &offerItemID
	} else {
		proposal.OfferService = req.OfferService
	}

	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		log.Printf("failed to create proposal: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"proposal": proposal})
}

// Respond lets the target item's owner accept or decline a proposal
func (s *ProposalService) Respond(c fiber.Ctx) error {
	proposalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid proposal ID"))
	}

	userID := c.Locals("userID").(string)
	responderID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req struct {
		Decision string `json:"decision"` // accept, decline
	}
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		return models.Respond(c, models.NewValidationError("invalid request body"))
	}
	if req.Decision != "accept" && req.Decision != "decline" {
		return models.Respond(c, models.NewValidationError("decision must be accept or decline"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		log.Printf("failed to load proposal: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if proposal == nil {
		return models.Respond(c, models.NewNotFoundError("proposal", proposalID))
	}

	target, err := s.store.GetItem(ctx, proposal.TargetItemID)
	if err != nil {
		log.Printf("failed to load target item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if target == nil || target.OwnerID != responderID {
		return models.Respond(c, models.NewForbiddenError("only the item owner can respond to this proposal"))
	}

	if proposal.Status != models.ProposalStatusPending {
		return models.Respond(c, models.NewConflictError("proposal is no longer pending"))
	}
	if proposal.Overdue(s.now()) {
		// Persist the lazy expiry, then reject the write
		if _, err := s.store.UpdateProposalStatus(ctx, proposal.ID,
			models.ProposalStatusPending, models.ProposalStatusExpired); err != nil {
			log.Printf("failed to expire proposal: %v", err)
		}
		return models.Respond(c, models.NewExpiredError("proposal has expired"))
	}

	if req.Decision == "decline" {
		ok, err := s.store.UpdateProposalStatus(ctx, proposal.ID,
			models.ProposalStatusPending, models.ProposalStatusDeclined)
		if err != nil {
			log.Printf("failed to decline proposal: %v", err)
			return models.Respond(c, models.NewInternalError(err))
		}
		if !ok {
			return models.Respond(c, models.NewConflictError("proposal is no longer pending"))
		}
		proposal.Status = models.ProposalStatusDeclined
		return c.JSON(fiber.Map{"proposal": proposal})
	}

	if appErr := s.accept(ctx, proposal); appErr != nil {
		return models.Respond(c, appErr)
	}
	proposal.Status = models.ProposalStatusAccepted
	return c.JSON(fiber.Map{"proposal": proposal})
}

// accept is the critical section. The item status column is the single
// point of serialization: each side flips ACTIVE→RESERVED through a
// conditional update, and a failed condition is a definitive loss of the
// race. No locks span the two updates; if the offer side loses after the
// target side won, the target flip is compensated before reporting the
// conflict, so either both items lock or neither does. The proposal stays
// PENDING on conflict for the caller to re-read and inspect.
func (s *ProposalService) accept(ctx context.Context, proposal *models.Proposal) *models.AppError {
	ok, err := s.store.UpdateItemStatus(ctx, proposal.TargetItemID,
		models.ItemStatusActive, models.ItemStatusReserved)
	if err != nil {
		log.Printf("failed to reserve target item: %v", err)
		return models.NewInternalError(err)
	}
	if !ok {
		return models.NewConflictError("target item is no longer active")
	}

	lockedItems := []uuid.UUID{proposal.TargetItemID}

	if proposal.OfferKind == models.OfferKindItem {
		ok, err := s.store.UpdateItemStatus(ctx, *proposal.OfferItemID,
			models.ItemStatusActive, models.ItemStatusReserved)
		if err == nil && !ok {
			// Compensating write: release the target before reporting
			s.releaseItems(ctx, lockedItems)
			return models.NewConflictError("offered item is no longer active")
		}
		if err != nil {
			log.Printf("failed to reserve offered item: %v", err)
			s.releaseItems(ctx, lockedItems)
			return models.NewInternalError(err)
		}
		lockedItems = append(lockedItems, *proposal.OfferItemID)
	}

	ok, err = s.store.UpdateProposalStatus(ctx, proposal.ID,
		models.ProposalStatusPending, models.ProposalStatusAccepted)
	if err != nil || !ok {
		s.releaseItems(ctx, lockedItems)
		if err != nil {
			log.Printf("failed to accept proposal: %v", err)
			return models.NewInternalError(err)
		}
		return models.NewConflictError("proposal is no longer pending")
	}

	// Conflict resolution: a trade promised here cannot stay promised
	// elsewhere
	declined, err := s.store.DeclineCompetingProposals(ctx, lockedItems, proposal.ID)
	if err != nil {
		log.Printf("failed to decline competing proposals: %v", err)
	} else if declined > 0 {
		log.Printf("declined %d competing proposals for items %v", declined, lockedItems)
	}

	if err := s.store.ConsumeReservation(ctx, proposal.TargetItemID, proposal.ProposerID); err != nil {
		log.Printf("failed to consume reservation: %v", err)
	}

	return nil
}

// releaseItems undoes RESERVED flips made earlier in a failed accept
func (s *ProposalService) releaseItems(ctx context.Context, itemIDs []uuid.UUID) {
	for _, id := range itemIDs {
		if _, err := s.store.UpdateItemStatus(ctx, id,
			models.ItemStatusReserved, models.ItemStatusActive); err != nil {
			log.Printf("failed to release item %s: %v", id, err)
		}
	}
}

// Cancel lets the proposer withdraw a PENDING proposal
func (s *ProposalService) Cancel(c fiber.Ctx) error {
	proposalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid proposal ID"))
	}

	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		log.Printf("failed to load proposal: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if proposal == nil {
		return models.Respond(c, models.NewNotFoundError("proposal", proposalID))
	}
	if proposal.ProposerID != callerID {
		return models.Respond(c, models.NewForbiddenError("only the proposer can cancel this proposal"))
	}

	ok, err := s.store.UpdateProposalStatus(ctx, proposal.ID,
		models.ProposalStatusPending, models.ProposalStatusCancelled)
	if err != nil {
		log.Printf("failed to cancel proposal: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if !ok {
		return models.Respond(c, models.NewConflictError("proposal is no longer pending"))
	}

	proposal.Status = models.ProposalStatusCancelled
	return c.JSON(fiber.Map{"proposal": proposal})
}

// ListMyProposals returns proposals where the caller is the proposer or the
// target item's owner, lazily expiring overdue PENDING entries
func (s *ProposalService) ListMyProposals(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	statusFilter := models.ProposalStatus(c.Query("status"))
	if statusFilter != "" && !models.ValidProposalStatuses[statusFilter] {
		return models.Respond(c, models.NewValidationError("unknown status"))
	}
	role := c.Query("role", "all") // all, incoming, outgoing

	ctx, cancel := db.GetContext()
	defer cancel()

	proposals, err := s.store.ListUserProposals(ctx, callerID)
	if err != nil {
		log.Printf("failed to list proposals: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	now := s.now()
	out := make([]models.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Overdue(now) {
			if _, err := s.store.UpdateProposalStatus(ctx, p.ID,
				models.ProposalStatusPending, models.ProposalStatusExpired); err != nil {
				log.Printf("failed to expire proposal: %v", err)
			}
			p.Status = models.ProposalStatusExpired
		}

		outgoing := p.ProposerID == callerID
		if role == "incoming" && outgoing {
			continue
		}
		if role == "outgoing" && !outgoing {
			continue
		}
		if statusFilter != "" && p.Status != statusFilter {
			continue
		}

		s.enrich(ctx, &p)
		out = append(out, p)
	}

	return c.JSON(fiber.Map{
		"proposals": out,
		"count":     len(out),
	})
}

// enrich attaches listing and profile display data to a proposal
func (s *ProposalService) enrich(ctx context.Context, p *models.Proposal) {
	if item, err := s.store.GetItem(ctx, p.TargetItemID); err == nil && item != nil {
		p.TargetItem = item
		if owner, err := s.profiles.Get(ctx, item.OwnerID); err == nil {
			p.TargetOwner = owner
		}
	}
	if p.OfferItemID != nil {
		if item, err := s.store.GetItem(ctx, *p.OfferItemID); err == nil && item != nil {
			p.OfferItem = item
		}
	}
	if proposer, err := s.profiles.Get(ctx, p.ProposerID); err == nil {
		p.Proposer = proposer
	}
}
