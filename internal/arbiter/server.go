package arbiter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerforbots/internal/engine"
	"github.com/lox/pokerforbots/internal/match"
	"github.com/lox/pokerforbots/internal/protocol"
)

// Config configures one arbiter run: the listening address, the seat count
// to wait for, the per-turn deadline, the starting bankroll, and the
// match's blind schedule (spec.md §4.5, §6's CLI surface).
type Config struct {
	Host          string
	Port          int
	Players       int
	Timeout       time.Duration
	StartingStack int
	Match         match.Config
	RNG           *rand.Rand

	Logger zerolog.Logger
	Clock  quartz.Clock

	// OnHandComplete, if set, is called synchronously with each hand's
	// structured log right after the match controller finalizes it
	// (spec.md §6's per-hand game_log_<hand_index>.json artifact).
	OnHandComplete func(*engine.HandLog)
}

// Server accepts one TCP connection per seat, then drives a Match to
// completion, translating engine turns into wire messages and wire messages
// back into engine actions.
type Server struct {
	cfg Config
	ln  net.Listener

	mu    sync.Mutex
	seats map[int]*seatConn
}

// New constructs an arbiter with the given configuration. A nil Clock
// defaults to the wall clock; a caller may inject a quartz.Mock to control
// turn timeouts deterministically.
func New(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &Server{cfg: cfg, seats: make(map[int]*seatConn)}
}

// Run listens, waits for every configured seat to connect, then plays hands
// until the match terminates. It returns the final per-seat bankrolls and
// the reason the match ended.
func (s *Server) Run(ctx context.Context) (map[int]int, match.Reason, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("arbiter: bind %s: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	s.cfg.Logger.Info().Str("addr", ln.Addr().String()).Int("players", s.cfg.Players).Msg("arbiter listening")

	if err := s.acceptSeats(ctx); err != nil {
		return nil, "", err
	}

	order := make([]int, 0, len(s.seats))
	bankrolls := make(map[int]int, len(s.seats))
	s.mu.Lock()
	for id := range s.seats {
		order = append(order, id)
		bankrolls[id] = s.cfg.StartingStack
	}
	s.mu.Unlock()
	sort.Ints(order)

	rng := s.cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m := match.New(order, bankrolls, s.cfg.Match, rng)

	for {
		if ctx.Err() != nil {
			return m.FinalBankrolls(), match.ReasonStopped, ctx.Err()
		}
		h, err := m.StartHand()
		if err != nil {
			terminated, reason := m.Terminated()
			if terminated {
				return m.FinalBankrolls(), reason, nil
			}
			return m.FinalBankrolls(), "", err
		}
		s.playHand(ctx, h)
		log := m.FinishHand(h)
		if s.cfg.OnHandComplete != nil && log != nil {
			s.cfg.OnHandComplete(log)
		}
	}
}

// acceptSeats blocks until cfg.Players connections have each sent a
// well-formed CONNECT message, per spec.md §4.5 "The server waits until the
// configured seat count has connected before starting the match."
func (s *Server) acceptSeats(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	connCh := make(chan net.Conn)

	g.Go(func() error {
		for {
			nc, err := s.ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case connCh <- nc:
			case <-gctx.Done():
				_ = nc.Close()
				return nil
			}
		}
	})

	for len(s.seats) < s.cfg.Players {
		select {
		case nc := <-connCh:
			if err := s.handshake(nc); err != nil {
				s.cfg.Logger.Warn().Err(err).Msg("connect handshake failed")
				_ = nc.Close()
			}
		case <-gctx.Done():
			return gctx.Err()
		}
	}
	return nil
}

// handshake reads the CONNECT envelope a newly accepted socket must send
// first, registers it under the claimed seat id, and starts its read/write
// pumps.
func (s *Server) handshake(nc net.Conn) error {
	_ = nc.SetReadDeadline(time.Now().Add(10 * time.Second))
	r := bufio.NewReader(nc)

	var connect protocol.ConnectPayload
	env, err := protocol.ReadEnvelope(r)
	if err != nil {
		return err
	}
	if env.Type != protocol.KindConnect {
		return fmt.Errorf("arbiter: expected CONNECT, got kind %d", env.Type)
	}
	if err := env.Decode(&connect); err != nil {
		return err
	}
	_ = nc.SetReadDeadline(time.Time{})

	s.mu.Lock()
	if _, taken := s.seats[connect.SeatID]; taken {
		s.mu.Unlock()
		return fmt.Errorf("arbiter: seat %d already connected", connect.SeatID)
	}
	sc := newSeatConn(connect.SeatID, nc, r, s.cfg.Logger)
	s.seats[connect.SeatID] = sc
	s.mu.Unlock()

	go sc.readPump()
	go sc.writePump()

	s.cfg.Logger.Info().Int("seat_id", connect.SeatID).Msg("seat connected")
	return nil
}

// playHand steps h via NextToAct/SubmitAction, sending GAME_START,
// ROUND_START/ROUND_END, REQUEST_PLAYER_ACTION, GAME_STATE and GAME_END at
// the points spec.md §4.5 names.
func (s *Server) playHand(ctx context.Context, h *engine.Hand) {
	s.broadcastGameStart(h)

	lastStreet := h.Street()
	s.broadcastRoundStart(lastStreet)

	for !h.Done() {
		seat, ok := h.NextToAct()
		if !ok {
			break
		}
		record := s.arbitrateTurn(ctx, h, seat)
		s.broadcastGameState(h)

		if record.Coerced || record.Timeout {
			s.cfg.Logger.Warn().
				Int("seat_id", seat).
				Int("hand_index", h.Index).
				Str("street", record.Street.String()).
				Str("action", record.Action.String()).
				Bool("timeout", record.Timeout).
				Msg("action coerced at arbiter boundary")
		}

		if h.Street() != lastStreet && !h.Done() {
			s.broadcastRoundEnd(lastStreet)
			lastStreet = h.Street()
			s.broadcastRoundStart(lastStreet)
		}
	}

	s.broadcastRoundEnd(lastStreet)
	s.broadcastGameEnd(h)
}

// arbitrateTurn sends REQUEST_PLAYER_ACTION to seat and blocks for its reply
// up to the configured deadline, per spec.md §4.5's turn-arbitration rule:
// an elapsed deadline synthesizes Fold (or Check if legal), and an action
// from a seat other than the one being asked is discarded with a log entry.
func (s *Server) arbitrateTurn(ctx context.Context, h *engine.Hand, seat int) engine.ActionRecord {
	sc := s.seatOrNil(seat)
	if sc == nil || sc.Disconnected() {
		rec, _ := h.SubmitAction(seat, engine.Fold, 0, true)
		return rec
	}

	deadline := s.cfg.Timeout
	_ = sc.SendMessage(protocol.KindRequestPlayerAction, protocol.RequestPlayerActionPayload{
		SeatID:     seat,
		DeadlineMs: int(deadline.Milliseconds()),
		ToCall:     h.ToCall(seat),
		MinRaise:   h.CurrentBet() + h.MinRaise(),
		MaxRaise:   h.MaxRaise(seat),
	})

	timer := s.cfg.Clock.NewTimer(deadline)
	defer timer.Stop()

	for {
		select {
		case raw := <-sc.actions:
			if raw.PlayerID != seat {
				s.cfg.Logger.Warn().
					Int("expected_seat", seat).
					Int("sent_seat", raw.PlayerID).
					Msg("action from a seat not currently asked, discarded")
				continue
			}
			decision := validateAction(h, seat, raw)
			rec, err := h.SubmitAction(seat, decision.Action, decision.Amount, false)
			if err != nil {
				// the boundary validation should make this unreachable; fall
				// back to the engine's own coercion safety net via a fold.
				rec, _ = h.SubmitAction(seat, engine.Fold, 0, true)
			}
			if decision.Coerced {
				rec.Coerced = true
			}
			return rec

		case <-sc.Done():
			s.cfg.Logger.Warn().Int("seat_id", seat).Msg("seat disconnected during action window")
			rec, _ := h.SubmitAction(seat, engine.Fold, 0, true)
			return rec

		case <-timer.C:
			s.cfg.Logger.Warn().Int("seat_id", seat).Msg("seat timed out")
			rec, _ := h.SubmitAction(seat, engine.Fold, 0, true)
			return rec

		case <-ctx.Done():
			rec, _ := h.SubmitAction(seat, engine.Fold, 0, true)
			return rec
		}
	}
}

// Addr returns the listener's bound address once Run has started listening,
// or nil beforehand. Useful for tests that bind to port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) seatOrNil(seat int) *seatConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[seat]
}

func (s *Server) broadcast(kind protocol.Kind, payload any) {
	s.mu.Lock()
	conns := make([]*seatConn, 0, len(s.seats))
	for _, sc := range s.seats {
		conns = append(conns, sc)
	}
	s.mu.Unlock()

	for _, sc := range conns {
		if err := sc.SendMessage(kind, payload); err != nil && !errors.Is(err, ErrConnClosed) {
			s.cfg.Logger.Warn().Err(err).Int("seat_id", sc.seatID).Msg("failed to send message")
		}
	}
}

func (s *Server) broadcastGameStart(h *engine.Hand) {
	stacks := make(map[int]int, len(h.Order))
	for _, id := range h.Order {
		stacks[id] = h.Seats[id].StartingStack
	}
	for _, id := range h.Order {
		seat := h.Seats[id]
		sc := s.seatOrNil(id)
		if sc == nil {
			continue
		}
		cards := make([]string, 0, len(seat.HoleCards))
		for _, c := range seat.HoleCards {
			cards = append(cards, c.Code())
		}
		_ = sc.SendMessage(protocol.KindGameStart, protocol.GameStartPayload{
			HandID:     fmt.Sprintf("%d", h.Index),
			SeatID:     id,
			HoleCards:  cards,
			SmallBlind: h.SBAmount(),
			BigBlind:   h.BBAmount(),
			SBSeat:     h.SBSeat,
			BBSeat:     h.BBSeat,
			Button:     h.Button,
			Seats:      append([]int(nil), h.Order...),
			Stacks:     stacks,
		})
	}
}

func (s *Server) broadcastRoundStart(street engine.Street) {
	s.broadcast(protocol.KindRoundStart, protocol.RoundStartPayload{Street: street.String()})
}

func (s *Server) broadcastRoundEnd(street engine.Street) {
	s.broadcast(protocol.KindRoundEnd, protocol.RoundEndPayload{Street: street.String()})
}

func (s *Server) broadcastGameState(h *engine.Hand) {
	seats := make([]protocol.SeatState, 0, len(h.Order))
	for _, id := range h.Order {
		seat := h.Seats[id]
		state := protocol.SeatState{
			SeatID: id,
			Stack:  seat.Stack,
			Bet:    h.SeatBet(id),
			Folded: seat.Status == engine.Folded,
			AllIn:  seat.Status == engine.AllIn,
		}
		if a, ok := h.SeatLastAction(id); ok {
			state.LastAction = a.String()
		}
		seats = append(seats, state)
	}
	community := make([]string, 0, len(h.Community))
	for _, c := range h.Community {
		community = append(community, c.Code())
	}

	livePots := h.LivePots()
	pots := make([]protocol.PotState, 0, len(livePots))
	for _, p := range livePots {
		pots = append(pots, protocol.PotState{Amount: p.Amount, Eligible: p.Eligible})
	}

	s.broadcast(protocol.KindGameState, protocol.GameStatePayload{
		Street:     h.Street().String(),
		Community:  community,
		Pot:        h.Pot(),
		CurrentBet: h.CurrentBet(),
		MinRaise:   h.MinRaise(),
		Seats:      seats,
		Pots:       pots,
	})
}

func (s *Server) broadcastGameEnd(h *engine.Hand) {
	result := h.Result()
	if result == nil {
		return
	}
	hands := make([]protocol.ShowdownPlayer, 0, len(result.Showdown))
	for _, rv := range result.Showdown {
		cards := make([]string, 0, len(rv.HoleCards))
		for _, c := range rv.HoleCards {
			cards = append(cards, c.Code())
		}
		hands = append(hands, protocol.ShowdownPlayer{SeatID: rv.Seat, HoleCards: cards, Category: rv.Category})
	}
	for _, id := range result.SeatRoster {
		sc := s.seatOrNil(id)
		if sc == nil {
			continue
		}
		_ = sc.SendMessage(protocol.KindGameEnd, protocol.GameEndPayload{
			PlayerScore:        result.AllScores[id],
			AllScores:          result.AllScores,
			ActivePlayersHands: hands,
		})
	}
}
