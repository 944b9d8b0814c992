package agdb

import "github.com/agnesoft/agdb-go/pkg/graph"

// command is one reversible undo-log entry (spec §4.10): applying undo
// reverses whatever the original facade call did. Every mutating facade
// method pushes the inverse command before (or immediately after)
// performing its own mutation, so a rollback can walk the stack in
// reverse and restore the pre-transaction state.
type command interface {
	undo(db *DB) error
}

type insertAliasCmd struct {
	id    int64
	alias string
}

func (c insertAliasCmd) undo(db *DB) error { return db.aliases.Insert(c.alias, c.id) }

type insertEdgeCmd struct{ from, to graph.Index }

func (c insertEdgeCmd) undo(db *DB) error {
	_, err := db.graph.InsertEdge(c.from, c.to)
	return err
}

type insertKeyValueCmd struct {
	id int64
	kv KeyValue
}

func (c insertKeyValueCmd) undo(db *DB) error { return db.values.Insert(c.id, c.kv) }

type insertNodeCmd struct{}

func (c insertNodeCmd) undo(db *DB) error {
	_, err := db.graph.InsertNode()
	return err
}

type removeAliasCmd struct{ alias string }

func (c removeAliasCmd) undo(db *DB) error { return db.aliases.RemoveKey(c.alias) }

type removeEdgeCmd struct{ index graph.Index }

func (c removeEdgeCmd) undo(db *DB) error { return db.graph.RemoveEdge(c.index) }

type removeKeyValueCmd struct {
	id int64
	kv KeyValue
}

func (c removeKeyValueCmd) undo(db *DB) error { return db.values.RemoveValue(c.id, c.kv) }

type removeNodeCmd struct{ index graph.Index }

func (c removeNodeCmd) undo(db *DB) error { return db.graph.RemoveNode(c.index) }

type replaceKeyValueCmd struct {
	id int64
	kv KeyValue
}

func (c replaceKeyValueCmd) undo(db *DB) error {
	_, _, err := db.values.InsertOrReplace(c.id, c.kv, c.kv.sameKey)
	return err
}
