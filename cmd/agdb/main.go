// Command agdb is a CLI around the embeddable database core in
// pkg/agdb: open a file, insert nodes/edges, bind aliases, set and read
// key/value pairs, walk the graph, and print storage stats.
package main

import (
	"fmt"
	"os"

	"github.com/agnesoft/agdb-go/pkg/agdb"
	"github.com/agnesoft/agdb-go/pkg/config"
	"github.com/agnesoft/agdb-go/pkg/graph"
	"github.com/agnesoft/agdb-go/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "agdb",
	Short:   "agdb - an embeddable graph database",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("agdb version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("db", "", "path to the database file")
	rootCmd.PersistentFlags().Bool("mirror", false, "keep an in-memory mirror of the database file")
	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides --db/--mirror)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(edgeCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(backupCmd)
}

func initLogging() {
	if cfgPath, _ := rootCmd.PersistentFlags().GetString("config"); cfgPath != "" {
		return // the config file's own log section wins, see openDB
	}
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

// openDB resolves --config, or failing that --db/--mirror, into an open
// database handle every subcommand shares.
func openDB(cmd *cobra.Command) (*agdb.DB, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg.InitLogging()
		return cfg.Open()
	}

	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		return nil, fmt.Errorf("--db or --config is required")
	}
	mirror, _ := cmd.Flags().GetBool("mirror")
	return agdb.Open(path, mirror)
}

// Node commands

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage nodes",
}

var nodeInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a new node and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		var id int64
		if err := db.TransactionMut(func(tx *agdb.DB) error {
			var insertErr error
			id, insertErr = tx.InsertNode()
			return insertErr
		}); err != nil {
			return fmt.Errorf("insert node: %w", err)
		}

		fmt.Println(id)
		return nil
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a node (and its edges) by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		var removed bool
		if err := db.TransactionMut(func(tx *agdb.DB) error {
			var removeErr error
			removed, removeErr = tx.RemoveID(id)
			return removeErr
		}); err != nil {
			return fmt.Errorf("remove node: %w", err)
		}

		if removed {
			fmt.Println("removed")
		} else {
			fmt.Println("not found")
		}
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeInsertCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)
}

// Edge commands

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage edges",
}

var edgeInsertCmd = &cobra.Command{
	Use:   "insert FROM TO",
	Short: "Insert an edge between two node ids and print its id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseID(args[0])
		if err != nil {
			return err
		}
		to, err := parseID(args[1])
		if err != nil {
			return err
		}

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		var id int64
		if err := db.TransactionMut(func(tx *agdb.DB) error {
			var insertErr error
			id, insertErr = tx.InsertEdge(from, to)
			return insertErr
		}); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}

		fmt.Println(id)
		return nil
	},
}

func init() {
	edgeCmd.AddCommand(edgeInsertCmd)
}

// Alias commands

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage aliases bound to node ids",
}

var aliasSetCmd = &cobra.Command{
	Use:   "set ID ALIAS",
	Short: "Bind alias to id, displacing any previous binding of either",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		alias := args[1]

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.TransactionMut(func(tx *agdb.DB) error {
			return tx.InsertAlias(id, alias)
		}); err != nil {
			return fmt.Errorf("set alias: %w", err)
		}
		return nil
	},
}

var aliasResolveCmd = &cobra.Command{
	Use:   "resolve ALIAS",
	Short: "Print the id an alias is bound to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.DbID(agdb.FromAlias(args[0]))
		if err != nil {
			return fmt.Errorf("resolve alias: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every alias binding",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		bindings, err := db.Aliases()
		if err != nil {
			return fmt.Errorf("list aliases: %w", err)
		}
		for _, b := range bindings {
			fmt.Printf("%s\t%d\n", b.Alias, b.ID)
		}
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasSetCmd)
	aliasCmd.AddCommand(aliasResolveCmd)
	aliasCmd.AddCommand(aliasListCmd)
}

// Value commands

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Manage key/value pairs stored under a node or edge",
}

var valueSetCmd = &cobra.Command{
	Use:   "set ID KEY VALUE",
	Short: "Insert or replace a string key/value pair",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		kv := stringKeyValue(args[1], args[2])

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.TransactionMut(func(tx *agdb.DB) error {
			return tx.InsertOrReplaceKeyValue(id, kv)
		}); err != nil {
			return fmt.Errorf("set value: %w", err)
		}
		return nil
	},
}

var valueGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print every key/value pair stored under id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		values, err := db.Values(id)
		if err != nil {
			return fmt.Errorf("get values: %w", err)
		}
		for _, kv := range values {
			key, _ := kv.Key.String()
			val, _ := kv.Value.String()
			fmt.Printf("%s=%s\n", key, val)
		}
		return nil
	},
}

func init() {
	valueCmd.AddCommand(valueSetCmd)
	valueCmd.AddCommand(valueGetCmd)
}

// Search command

var searchCmd = &cobra.Command{
	Use:   "search FROM",
	Short: "Breadth-first search from a node id, printing every visited element",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseID(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetUint64("limit")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		var handler agdb.SearchHandler = allHandler{}
		if limit > 0 {
			handler = agdb.NewLimitHandler(limit, handler)
		}

		result, err := db.SearchFrom(from, agdb.BreadthFirst, handler)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		for _, idx := range result {
			fmt.Println(idx)
		}
		return nil
	},
}

type allHandler struct{}

func (allHandler) Process(index graph.Index, distance uint64) (agdb.SearchControl, error) {
	return agdb.Continue(true), nil
}

func init() {
	searchCmd.Flags().Uint64("limit", 0, "stop after this many results (0 means unlimited)")
}

// Stats command

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print storage and collection statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}

		fmt.Printf("records:      %d\n", stats.Records)
		fmt.Printf("free records: %d\n", stats.FreeRecords)
		fmt.Printf("storage size: %d bytes\n", stats.StorageSize)
		fmt.Printf("nodes:        %d\n", stats.Nodes)
		fmt.Printf("edges:        %d\n", stats.Edges)
		fmt.Printf("wal entries:  %d\n", stats.WalEntries)
		for name, factor := range stats.LoadFactors {
			fmt.Printf("load factor (%s): %.3f\n", name, factor)
		}
		return nil
	},
}

// Backup command

var backupCmd = &cobra.Command{
	Use:   "backup DESTINATION",
	Short: "Flush the database and copy it to DESTINATION",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Backup(args[0]); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Printf("backed up to %s\n", args[0])
		return nil
	},
}
