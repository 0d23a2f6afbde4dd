package store

import (
	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/google/uuid"
)

type opKind int

const (
	opSet opKind = iota
	opUpdate
	opDelete
)

type entityKind int

const (
	entityPool entityKind = iota
	entityBracket
	entityGame
)

type batchOp struct {
	kind   opKind
	entity entityKind
	id     uuid.UUID

	pool          bracket.Pool
	poolUpdate    bracket.PoolUpdate
	bracket       bracket.Bracket
	bracketUpdate bracket.BracketUpdate
	game          bracket.Game
	gameUpdate    bracket.GameUpdate
}

// Batch collects writes that are committed together or not at all.
// Operations are applied in the order they were added. Set inserts or
// replaces the whole document, Update fails with bracket.ErrNotFound when the
// document does not exist, Delete fails the same way.
type Batch struct {
	ops []batchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) SetPool(p bracket.Pool) {
	b.ops = append(b.ops, batchOp{kind: opSet, entity: entityPool, id: p.ID, pool: p})
}

func (b *Batch) UpdatePool(id uuid.UUID, u bracket.PoolUpdate) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, entity: entityPool, id: id, poolUpdate: u})
}

func (b *Batch) DeletePool(id uuid.UUID) {
	b.ops = append(b.ops, batchOp{kind: opDelete, entity: entityPool, id: id})
}

func (b *Batch) SetBracket(br bracket.Bracket) {
	b.ops = append(b.ops, batchOp{kind: opSet, entity: entityBracket, id: br.ID, bracket: br})
}

func (b *Batch) UpdateBracket(id uuid.UUID, u bracket.BracketUpdate) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, entity: entityBracket, id: id, bracketUpdate: u})
}

func (b *Batch) DeleteBracket(id uuid.UUID) {
	b.ops = append(b.ops, batchOp{kind: opDelete, entity: entityBracket, id: id})
}

func (b *Batch) SetGame(g bracket.Game) {
	b.ops = append(b.ops, batchOp{kind: opSet, entity: entityGame, id: g.ID, game: g})
}

func (b *Batch) UpdateGame(id uuid.UUID, u bracket.GameUpdate) {
	b.ops = append(b.ops, batchOp{kind: opUpdate, entity: entityGame, id: id, gameUpdate: u})
}

func (b *Batch) DeleteGame(id uuid.UUID) {
	b.ops = append(b.ops, batchOp{kind: opDelete, entity: entityGame, id: id})
}
