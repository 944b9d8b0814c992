package agdb

import (
	"fmt"

	"github.com/agnesoft/agdb-go/pkg/container"
	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/dbvalue"
	"github.com/agnesoft/agdb-go/pkg/graph"
	"github.com/agnesoft/agdb-go/pkg/log"
	"github.com/agnesoft/agdb-go/pkg/metrics"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

// DB is the database facade of spec §4.10.
type DB struct {
	filename      string
	storage       *storage.Storage
	graph         *graph.Graph
	aliases       *container.IndexedBidirectionalMap[string, int64]
	values        *container.MultiMap[int64, KeyValue]
	undoStack     []command
	txActive      bool
	shrinkOnClose bool
}

// Options configures Open beyond the mirror flag, for callers (the CLI,
// pkg/config) that need to tune behavior the bare Open signature
// doesn't expose.
type Options struct {
	// Mirror selects the byte backing's in-memory mirrored mode.
	Mirror bool
	// ShrinkOnClose runs shrink_to_fit when the DB is closed, releasing
	// tombstoned free-list space back to the filesystem. Defaults to
	// true in Open; set false to skip it for short-lived handles where
	// the extra close-time I/O isn't worth it.
	ShrinkOnClose bool
}

// AliasBinding pairs an alias with the id it is bound to.
type AliasBinding struct {
	Alias string
	ID    int64
}

// Open creates or loads filename as a DB. mirror selects the byte
// backing's in-memory mirrored mode (pkg/bytestore).
func Open(filename string, mirror bool) (*DB, error) {
	return OpenWithOptions(filename, Options{Mirror: mirror, ShrinkOnClose: true})
}

// OpenWithOptions is Open with the tunables in Options instead of just
// the mirror flag.
func OpenWithOptions(filename string, opts Options) (*DB, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.OpenDuration)

	s, err := storage.Open(filename, opts.Mirror)
	if err != nil {
		return nil, err
	}

	size, err := s.ValueSize(storage.RootIndex)
	if err != nil {
		return nil, err
	}

	var db *DB
	switch size {
	case descriptorSize:
		db, err = reopen(s, filename)
	case 0:
		db, err = create(s, filename)
	default:
		err = dberr.NewDataIntegrity("file '%s' is not a valid database file and is not empty", filename)
	}
	if err != nil {
		return nil, err
	}
	db.shrinkOnClose = opts.ShrinkOnClose

	log.WithDatabase(filename).Info().Msg("database opened")
	return db, nil
}

func reopen(s *storage.Storage, filename string) (*DB, error) {
	raw, err := s.Value(storage.RootIndex)
	if err != nil {
		return nil, err
	}
	d, err := decodeDescriptor(raw)
	if err != nil {
		return nil, dberr.NewDataIntegrity("record 1 descriptor is corrupt: %v", err)
	}

	g, err := graph.Open(s, d.graph)
	if err != nil {
		return nil, err
	}
	aliases, err := container.OpenIndexedBidirectionalMap[string, int64](
		s,
		d.aliasKTV[0], d.aliasKTV[1], d.aliasKTV[2], d.aliasKTV[3],
		d.aliasVTK[0], d.aliasVTK[1], d.aliasVTK[2], d.aliasVTK[3],
		container.StringCodec(s), container.I64Codec,
		container.HashString, container.HashI64,
	)
	if err != nil {
		return nil, err
	}
	values, err := container.OpenMultiMap[int64, KeyValue](
		s,
		d.values[0], d.values[1], d.values[2], d.values[3],
		container.I64Codec, keyValueCodec(s), container.HashI64,
	)
	if err != nil {
		return nil, err
	}

	return &DB{filename: filename, storage: s, graph: g, aliases: aliases, values: values}, nil
}

func create(s *storage.Storage, filename string) (*DB, error) {
	tx := s.Transaction()

	g, err := graph.New(s)
	if err != nil {
		return nil, err
	}
	aliases, err := container.NewIndexedBidirectionalMap[string, int64](
		s, container.StringCodec(s), container.I64Codec, container.HashString, container.HashI64,
	)
	if err != nil {
		return nil, err
	}
	values, err := container.NewMultiMap[int64, KeyValue](s, container.I64Codec, keyValueCodec(s), container.HashI64)
	if err != nil {
		return nil, err
	}

	aliasIdx := aliases.StorageIndices()
	d := descriptor{
		graph:    g.Index(),
		aliasKTV: [4]uint64{aliasIdx[0], aliasIdx[1], aliasIdx[2], aliasIdx[3]},
		aliasVTK: [4]uint64{aliasIdx[4], aliasIdx[5], aliasIdx[6], aliasIdx[7]},
		values:   [4]uint64{values.StateIndex(), values.KeyIndex(), values.ValueIndex(), values.LenIndex()},
	}
	if _, err := s.InsertAt(storage.RootIndex, 0, d.encode()); err != nil {
		return nil, err
	}
	if err := s.Commit(tx); err != nil {
		return nil, err
	}

	return &DB{filename: filename, storage: s, graph: g, aliases: aliases, values: values}, nil
}

// Close runs shrink_to_fit when shrink-on-close is enabled (an error from
// it is logged as a warning, not returned) and releases the underlying
// file handles.
func (db *DB) Close() error {
	if db.shrinkOnClose {
		if err := db.storage.ShrinkToFit(); err != nil {
			log.WithDatabase(db.filename).Warn().Err(err).Msg("shrink_to_fit failed on close")
		}
	}
	return db.storage.Close()
}

// Backup flushes the storage and copies it to filename.
func (db *DB) Backup(filename string) error { return db.storage.Backup(filename) }

// TransactionMut clears any stale undo log and runs f. On a nil return
// the undo log is cleared (the per-call storage transactions already
// committed); on a non-nil return the undo log is replayed in reverse.
// Nested mutating transactions are not supported: a call made while one
// is already in progress fails with TransactionMismatch.
func (db *DB) TransactionMut(f func(*DB) error) error {
	if db.txActive {
		return dberr.NewTransactionMismatch(0, 0)
	}
	db.txActive = true
	defer func() { db.txActive = false }()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TransactionDuration)

	db.undoStack = db.undoStack[:0]
	result := f(db)
	metrics.UndoLogLength.Observe(float64(len(db.undoStack)))

	if result == nil {
		if err := db.commit(); err != nil {
			return err
		}
		metrics.TransactionsTotal.WithLabelValues("committed").Inc()
		return nil
	}

	if err := db.rollback(); err != nil {
		return err
	}
	metrics.TransactionsTotal.WithLabelValues("rolled_back").Inc()
	return result
}

// Transaction runs f in a read-only scope: a bookkeeping no-op in this
// single-threaded port, kept to mirror the original's API surface (spec
// §4.10's "read-only transaction").
func (db *DB) Transaction(f func(*DB) error) error { return f(db) }

func (db *DB) pushUndo(c command) { db.undoStack = append(db.undoStack, c) }

func (db *DB) commit() error {
	db.undoStack = db.undoStack[:0]
	return nil
}

func (db *DB) rollback() error {
	stack := db.undoStack
	db.undoStack = nil

	var firstErr error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i].undo(db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InsertNode creates a new node and returns its id.
func (db *DB) InsertNode() (int64, error) {
	index, err := db.graph.InsertNode()
	if err != nil {
		return 0, err
	}
	db.pushUndo(removeNodeCmd{index: index})
	return int64(index), nil
}

// InsertEdge creates a new directed edge from `from` to `to` and
// returns its id.
func (db *DB) InsertEdge(from, to int64) (int64, error) {
	index, err := db.graph.InsertEdge(graph.Index(from), graph.Index(to))
	if err != nil {
		return 0, err
	}
	db.pushUndo(removeEdgeCmd{index: index})
	return int64(index), nil
}

// InsertAlias binds alias to id, displacing whatever alias id
// previously held.
func (db *DB) InsertAlias(id int64, alias string) error {
	if oldAlias, ok, err := db.aliases.Key(id); err != nil {
		return err
	} else if ok {
		db.pushUndo(insertAliasCmd{id: id, alias: oldAlias})
		if err := db.aliases.RemoveKey(oldAlias); err != nil {
			return err
		}
	}

	db.pushUndo(removeAliasCmd{alias: alias})
	return db.aliases.Insert(alias, id)
}

// InsertNewAlias binds alias to id, failing if alias is already bound
// to any id, id itself included.
func (db *DB) InsertNewAlias(id int64, alias string) error {
	if existing, ok, err := db.aliases.Value(alias); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("alias '%s' already exists (%d)", alias, existing)
	}

	db.pushUndo(removeAliasCmd{alias: alias})
	return db.aliases.Insert(alias, id)
}

// InsertKeyValue appends (never replaces) kv under id.
func (db *DB) InsertKeyValue(id int64, kv KeyValue) error {
	db.pushUndo(removeKeyValueCmd{id: id, kv: kv})
	return db.values.Insert(id, kv)
}

// InsertOrReplaceKeyValue replaces the existing value under id sharing
// kv's key, or appends kv as new if none matches.
func (db *DB) InsertOrReplaceKeyValue(id int64, kv KeyValue) error {
	old, hadOld, err := db.values.InsertOrReplace(id, kv, kv.sameKey)
	if err != nil {
		return err
	}
	if hadOld {
		db.pushUndo(replaceKeyValueCmd{id: id, kv: old})
	} else {
		db.pushUndo(removeKeyValueCmd{id: id, kv: kv})
	}
	return nil
}

// Keys returns the key of every pair stored under id; a key stored in
// several pairs appears once per pair.
func (db *DB) Keys(id int64) ([]dbvalue.Value, error) {
	var out []dbvalue.Value
	err := db.values.IterKey(id, func(kv KeyValue) bool {
		out = append(out, kv.Key)
		return true
	})
	return out, err
}

// KeyCount returns the number of key/value pairs stored under id.
func (db *DB) KeyCount(id int64) (uint64, error) { return db.values.ValuesCount(id) }

// Values returns every key/value pair stored under id.
func (db *DB) Values(id int64) ([]KeyValue, error) { return db.values.Values(id) }

// ValuesByKeys returns the key/value pairs stored under id whose key is
// one of keys.
func (db *DB) ValuesByKeys(id int64, keys []dbvalue.Value) ([]KeyValue, error) {
	var out []KeyValue
	err := db.values.IterKey(id, func(kv KeyValue) bool {
		if containsKey(keys, kv.Key) {
			out = append(out, kv)
		}
		return true
	})
	return out, err
}

// Remove removes the node or edge addressed by id, its values, and, for
// a node, every edge attached to it. Reports whether anything was
// removed.
func (db *DB) Remove(id ID) (bool, error) {
	if id.isAlias {
		value, ok, err := db.aliases.Value(id.alias)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if err := db.removeNode(value, graph.Index(value), id.alias, true); err != nil {
			return false, err
		}
		if err := db.removeAllValues(value); err != nil {
			return false, err
		}
		return true, nil
	}
	return db.RemoveID(id.value)
}

// RemoveID removes the node or edge addressed by the signed graph id,
// its values, and, for a node, every edge attached to it. Reports
// whether anything was removed.
func (db *DB) RemoveID(id int64) (bool, error) {
	index, err := db.graphIndex(id)
	if err != nil {
		return false, nil
	}

	if index.IsNode() {
		alias, ok, err := db.aliases.Key(id)
		if err != nil {
			return false, err
		}
		if err := db.removeNode(id, index, alias, ok); err != nil {
			return false, err
		}
	} else {
		if err := db.removeEdge(index); err != nil {
			return false, err
		}
	}

	if err := db.removeAllValues(id); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveAlias unbinds alias. Reports whether it was bound to anything.
func (db *DB) RemoveAlias(alias string) (bool, error) {
	id, ok, err := db.aliases.Value(alias)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	db.pushUndo(insertAliasCmd{id: id, alias: alias})
	if err := db.aliases.RemoveKey(alias); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveKeys removes every key/value pair stored under id whose key is
// one of keys, returning the negated count removed.
func (db *DB) RemoveKeys(id int64, keys []dbvalue.Value) (int64, error) {
	kvs, err := db.values.Values(id)
	if err != nil {
		return 0, err
	}

	var result int64
	for _, kv := range kvs {
		if containsKey(keys, kv.Key) {
			db.pushUndo(insertKeyValueCmd{id: id, kv: kv})
			if err := db.values.RemoveValue(id, kv); err != nil {
				return result, err
			}
			result--
		}
	}
	return result, nil
}

// Alias returns the alias bound to id, or NotFound if none is.
func (db *DB) Alias(id int64) (string, error) {
	alias, ok, err := db.aliases.Key(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", dberr.NewNotFound("id '%d' not found", id)
	}
	return alias, nil
}

// Aliases returns every (alias, id) binding.
func (db *DB) Aliases() ([]AliasBinding, error) {
	var out []AliasBinding
	err := db.aliases.Iter(func(alias string, id int64) bool {
		out = append(out, AliasBinding{Alias: alias, ID: id})
		return true
	})
	return out, err
}

// DbID resolves id to its signed graph id, whether id addresses
// directly or through an alias.
func (db *DB) DbID(id ID) (int64, error) {
	if id.isAlias {
		v, ok, err := db.aliases.Value(id.alias)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, dberr.NewNotFound("alias '%s' not found", id.alias)
		}
		return v, nil
	}
	index, err := db.graphIndex(id.value)
	if err != nil {
		return 0, err
	}
	return int64(index), nil
}

func (db *DB) graphIndex(id int64) (graph.Index, error) {
	switch {
	case id < 0:
		if _, err := db.graph.Edge(graph.Index(id)); err == nil {
			return graph.Index(id), nil
		}
	case id > 0:
		if _, err := db.graph.Node(graph.Index(id)); err == nil {
			return graph.Index(id), nil
		}
	}
	return 0, dberr.NewNotFound("id '%d' not found", id)
}

type edgeRef struct {
	index, from, to graph.Index
}

func (db *DB) nodeEdges(index graph.Index) ([]edgeRef, error) {
	node, err := db.graph.Node(index)
	if err != nil {
		return nil, dberr.NewDataIntegrity("graph integrity corrupted: %v", err)
	}

	var edges []edgeRef
	var iterErr error

	if err := node.EdgeIterFrom(func(e graph.Edge) bool {
		from, ferr := e.From()
		if ferr != nil {
			iterErr = ferr
			return false
		}
		to, terr := e.To()
		if terr != nil {
			iterErr = terr
			return false
		}
		edges = append(edges, edgeRef{index: e.Index(), from: from, to: to})
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}

	if err := node.EdgeIterTo(func(e graph.Edge) bool {
		from, ferr := e.From()
		if ferr != nil {
			iterErr = ferr
			return false
		}
		if from == index {
			return true
		}
		to, terr := e.To()
		if terr != nil {
			iterErr = terr
			return false
		}
		edges = append(edges, edgeRef{index: e.Index(), from: from, to: to})
		return true
	}); err != nil {
		return nil, err
	}
	return edges, iterErr
}

func (db *DB) removeEdge(index graph.Index) error {
	e, err := db.graph.Edge(index)
	if err != nil {
		return dberr.NewDataIntegrity("graph integrity corrupted: %v", err)
	}
	from, err := e.From()
	if err != nil {
		return err
	}
	to, err := e.To()
	if err != nil {
		return err
	}

	if err := db.graph.RemoveEdge(index); err != nil {
		return err
	}
	db.pushUndo(insertEdgeCmd{from: from, to: to})
	return nil
}

func (db *DB) removeNode(id int64, index graph.Index, alias string, hasAlias bool) error {
	if hasAlias {
		db.pushUndo(insertAliasCmd{id: id, alias: alias})
		if err := db.aliases.RemoveKey(alias); err != nil {
			return err
		}
	}

	edges, err := db.nodeEdges(index)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := db.graph.RemoveEdge(e.index); err != nil {
			return err
		}
		db.pushUndo(insertEdgeCmd{from: e.from, to: e.to})
	}

	if err := db.graph.RemoveNode(index); err != nil {
		return err
	}
	db.pushUndo(insertNodeCmd{})
	return nil
}

func (db *DB) removeAllValues(id int64) error {
	kvs, err := db.values.Values(id)
	if err != nil {
		return err
	}
	for _, kv := range kvs {
		db.pushUndo(insertKeyValueCmd{id: id, kv: kv})
	}
	return db.values.RemoveKey(id)
}

func containsKey(keys []dbvalue.Value, key dbvalue.Value) bool {
	for _, k := range keys {
		if k.Compare(key) == 0 {
			return true
		}
	}
	return false
}

// Stats implements metrics.Source.
func (db *DB) Stats() (metrics.Stats, error) {
	nodes, err := db.graph.NodeCount()
	if err != nil {
		return metrics.Stats{}, err
	}
	edges, err := db.graph.EdgeCount()
	if err != nil {
		return metrics.Stats{}, err
	}

	loadFactors := map[string]float64{
		"aliases": loadFactor(db.aliases.Len(), db.aliases.Capacity()),
		"values":  loadFactor(db.values.Len(), db.values.Capacity()),
	}

	return metrics.Stats{
		Records:     db.storage.RecordCount(),
		FreeRecords: db.storage.FreeRecordCount(),
		StorageSize: db.storage.Len(),
		Nodes:       nodes,
		Edges:       edges,
		WalEntries:  db.storage.WalEntryCount(),
		LoadFactors: loadFactors,
	}, nil
}

func loadFactor(length, capacity uint64) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(length) / float64(capacity)
}
