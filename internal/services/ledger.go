package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"xswap/swapd/internal/constants"
	"xswap/swapd/internal/models"
	"xswap/swapd/internal/stores"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPreimage = errors.New("invalid preimage")
	ErrExpired         = errors.New("timelock expired")
	ErrNotYetExpired   = errors.New("timelock not yet expired")
	ErrAlreadySettled  = errors.New("swap already settled")
	ErrUnauthorized    = errors.New("unauthorized caller")
	ErrTransferFailed  = errors.New("transfer failed")
)

// SwapLedger owns all swap records and serializes mutations per swap id. It is
// the single writer: every mutating call holds the swap's lock across the full
// check, flag-flip and value-transfer sequence, and a failed transfer rolls the
// flag back under that same lock. Lookup errors pass through as
// stores.ErrSwapNotFound and stores.ErrDuplicateSwap.
type SwapLedger struct {
	swaps    stores.SwapStore
	treasury Treasury
	events   EventSink
	log      zerolog.Logger

	minTimelock time.Duration
	now         func() time.Time

	mu    sync.Mutex
	locks map[common.Hash]*sync.Mutex
}

func NewSwapLedger(swaps stores.SwapStore, treasury Treasury, events EventSink, log zerolog.Logger) *SwapLedger {
	return &SwapLedger{
		swaps:       swaps,
		treasury:    treasury,
		events:      events,
		log:         log,
		minTimelock: constants.DefaultMinTimelock,
		now:         time.Now,
		locks:       make(map[common.Hash]*sync.Mutex),
	}
}

// SetMinTimelock overrides the minimum creation-to-expiry gap. Call before
// serving requests.
func (l *SwapLedger) SetMinTimelock(d time.Duration) {
	l.minTimelock = d
}

// Initiate locks `amount` from the caller under a hash commitment and an
// absolute expiry, returning the derived swap id. The id includes the creation
// second, so identical parameters submitted within the same second collide and
// the second submission fails as a duplicate.
func (l *SwapLedger) Initiate(ctx context.Context, caller, participant common.Address, amount *big.Int, hashlock common.Hash, timelock int64, destinationAddress string) (common.Hash, error) {
	now := l.now()

	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if caller == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("%w: zero caller address", ErrInvalidInput)
	}
	if participant == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("%w: zero participant address", ErrInvalidInput)
	}
	if destinationAddress == "" {
		return common.Hash{}, fmt.Errorf("%w: empty destination address", ErrInvalidInput)
	}
	if timelock <= now.Unix()+int64(l.minTimelock.Seconds()) {
		return common.Hash{}, fmt.Errorf("%w: timelock %d must exceed now+%s", ErrInvalidInput, timelock, l.minTimelock)
	}

	id := models.SwapID(caller, participant, amount, hashlock, timelock, now.Unix())

	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if _, err := l.swaps.Get(ctx, id); err == nil {
		return common.Hash{}, stores.ErrDuplicateSwap
	} else if !errors.Is(err, stores.ErrSwapNotFound) {
		return common.Hash{}, err
	}

	if err := l.treasury.Escrow(ctx, caller, amount); err != nil {
		return common.Hash{}, fmt.Errorf("%w: escrow from %s: %v", ErrTransferFailed, caller.Hex(), err)
	}

	swap := &models.Swap{
		ID:                 id,
		Initiator:          caller,
		Participant:        participant,
		Amount:             new(big.Int).Set(amount),
		Hashlock:           hashlock,
		Timelock:           timelock,
		DestinationAddress: destinationAddress,
		CreatedAt:          now.Unix(),
	}
	if err := l.swaps.PutIfAbsent(ctx, swap); err != nil {
		// undo the escrow; the record never existed
		if perr := l.treasury.Payout(ctx, caller, amount); perr != nil {
			l.log.Error().Err(perr).Str("swap_id", id.Hex()).Msg("escrow rollback failed, balance stuck in escrow")
		}
		return common.Hash{}, err
	}

	l.emit(ctx, models.NewInitiatedEvent(swap))
	l.log.Info().
		Str("swap_id", id.Hex()).
		Str("initiator", caller.Hex()).
		Str("participant", participant.Hex()).
		Str("amount", amount.String()).
		Int64("timelock", timelock).
		Msg("swap initiated")
	return id, nil
}

// Claim releases the locked value to the participant in exchange for the
// preimage. Guards run in a fixed order, each its own failure mode: existence,
// preimage, settlement, expiry, caller identity. Settlement is checked before
// expiry so a terminal swap always reports ErrAlreadySettled, whatever the
// clock says.
func (l *SwapLedger) Claim(ctx context.Context, caller common.Address, id common.Hash, preimage []byte) error {
	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	swap, err := l.swaps.Get(ctx, id)
	if err != nil {
		return err
	}
	if models.HashlockOf(preimage) != swap.Hashlock {
		return ErrInvalidPreimage
	}
	if swap.Settled() {
		return ErrAlreadySettled
	}
	if l.now().Unix() >= swap.Timelock {
		return ErrExpired
	}
	if caller != swap.Participant {
		return ErrUnauthorized
	}

	// flag flips and persists before the transfer so any reentrant call
	// observes the swap as settled
	swap.Withdrawn = true
	swap.Preimage = append([]byte(nil), preimage...)
	if err := l.swaps.Put(ctx, swap); err != nil {
		return err
	}

	if err := l.treasury.Payout(ctx, swap.Participant, swap.Amount); err != nil {
		swap.Withdrawn = false
		swap.Preimage = nil
		if perr := l.swaps.Put(ctx, swap); perr != nil {
			l.log.Error().Err(perr).Str("swap_id", id.Hex()).Msg("claim rollback failed, record marked withdrawn without payout")
			return fmt.Errorf("%w: payout failed and rollback failed: %v", ErrTransferFailed, perr)
		}
		return fmt.Errorf("%w: payout to %s: %v", ErrTransferFailed, swap.Participant.Hex(), err)
	}

	l.emit(ctx, models.NewWithdrawnEvent(id, preimage))
	l.log.Info().
		Str("swap_id", id.Hex()).
		Str("participant", swap.Participant.Hex()).
		Str("amount", swap.Amount.String()).
		Msg("swap claimed")
	return nil
}

// Refund returns the locked value to the initiator once the timelock has
// passed. Guard order: existence, settlement, expiry, caller identity — a
// settled swap reports ErrAlreadySettled even before the timelock.
func (l *SwapLedger) Refund(ctx context.Context, caller common.Address, id common.Hash) error {
	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	swap, err := l.swaps.Get(ctx, id)
	if err != nil {
		return err
	}
	if swap.Settled() {
		return ErrAlreadySettled
	}
	if l.now().Unix() < swap.Timelock {
		return ErrNotYetExpired
	}
	if caller != swap.Initiator {
		return ErrUnauthorized
	}

	swap.Refunded = true
	if err := l.swaps.Put(ctx, swap); err != nil {
		return err
	}

	if err := l.treasury.Payout(ctx, swap.Initiator, swap.Amount); err != nil {
		swap.Refunded = false
		if perr := l.swaps.Put(ctx, swap); perr != nil {
			l.log.Error().Err(perr).Str("swap_id", id.Hex()).Msg("refund rollback failed, record marked refunded without payout")
			return fmt.Errorf("%w: payout failed and rollback failed: %v", ErrTransferFailed, perr)
		}
		return fmt.Errorf("%w: payout to %s: %v", ErrTransferFailed, swap.Initiator.Hex(), err)
	}

	l.emit(ctx, models.NewRefundedEvent(id))
	l.log.Info().
		Str("swap_id", id.Hex()).
		Str("initiator", swap.Initiator.Hex()).
		Str("amount", swap.Amount.String()).
		Msg("swap refunded")
	return nil
}

// Get returns the stored record, or an empty record for unknown ids. Callers
// check existence through the initiator field, not through an error.
func (l *SwapLedger) Get(ctx context.Context, id common.Hash) (*models.Swap, error) {
	swap, err := l.swaps.Get(ctx, id)
	if errors.Is(err, stores.ErrSwapNotFound) {
		return &models.Swap{ID: id, Amount: new(big.Int)}, nil
	}
	if err != nil {
		return nil, err
	}
	return swap, nil
}

// IsActive reports whether the swap exists with neither terminal flag set.
// Expiry is not consulted: an expired, unrefunded swap still reports active.
func (l *SwapLedger) IsActive(ctx context.Context, id common.Hash) (bool, error) {
	swap, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return swap.Active(), nil
}

func (l *SwapLedger) emit(ctx context.Context, ev *models.SwapEvent) {
	if err := l.events.Emit(ctx, ev); err != nil {
		l.log.Error().Err(err).Str("type", string(ev.Type)).Str("swap_id", ev.SwapID.Hex()).Msg("event emit failed")
	}
}

func (l *SwapLedger) lockFor(id common.Hash) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
