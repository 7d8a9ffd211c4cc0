// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"permadb/internal/config"
	"permadb/internal/kvstore"
	_ "permadb/internal/kvstore/memkv"
	_ "permadb/internal/kvstore/sqlkv"
	"permadb/internal/objid"
	"permadb/internal/output"
	tomlschema "permadb/internal/parser/toml"
	"permadb/internal/schema"
	"permadb/internal/txn"
)

// globalFlags holds the persistent, root-level flags every subcommand reads
// to resolve its config file, backend, and output format.
type globalFlags struct {
	configFile string
	backend    string
	dsn        string
	schemaFile string
	format     string
}

func main() {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "permadb",
		Short: "Typed object store over a sorted key/value backend",
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to a TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "KV backend name (memkv or sqlkv), overrides config")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Backend connection string, overrides config")
	rootCmd.PersistentFlags().StringVar(&flags.schemaFile, "schema", "", "Path to a TOML schema definition file, overrides config")
	rootCmd.PersistentFlags().StringVarP(&flags.format, "format", "f", "", "Output format: human, json, or summary")

	rootCmd.AddCommand(schemaCmd(flags))
	rootCmd.AddCommand(objectCmd(flags))
	rootCmd.AddCommand(indexCmd(flags))
	rootCmd.AddCommand(migrateCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig loads --config (if given), seeded from config.Default(), then
// applies any of the root flags the caller actually set on top of it.
func resolveConfig(flags *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.dsn != "" {
		cfg.DSN = flags.dsn
	}
	if flags.schemaFile != "" {
		cfg.SchemaFile = flags.schemaFile
	}
	if flags.format != "" {
		cfg.Format = flags.format
	}
	return cfg, nil
}

// session is one opened KV store + bound transaction, the unit of work a
// subcommand's RunE operates on.
type session struct {
	store     kvstore.Store
	kvtx      kvstore.Tx
	tx        *txn.Tx
	formatter output.Formatter
}

// openSession opens cfg.Backend/cfg.DSN, begins a KV transaction, and binds
// it to cfg.SchemaFile (if set) or whatever schema version is already
// registered. Callers must call close(commit) exactly once.
func openSession(cfg config.Config) (*session, error) {
	store, err := kvstore.Open(cfg.Backend, cfg.DSN)
	if err != nil {
		return nil, err
	}
	kvtx, err := store.Begin()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var desired *schema.Schema
	if cfg.SchemaFile != "" {
		desired, err = tomlschema.NewParser().ParseFile(cfg.SchemaFile)
		if err != nil {
			_ = kvtx.Rollback()
			_ = store.Close()
			return nil, err
		}
	}

	opts, err := cfg.TxnOptions()
	if err != nil {
		_ = kvtx.Rollback()
		_ = store.Close()
		return nil, err
	}

	tx, err := txn.Open(kvtx, desired, nil, nil, opts)
	if err != nil {
		_ = kvtx.Rollback()
		_ = store.Close()
		return nil, err
	}

	formatter, err := output.NewFormatter(cfg.Format)
	if err != nil {
		_ = kvtx.Rollback()
		_ = store.Close()
		return nil, err
	}

	return &session{store: store, kvtx: kvtx, tx: tx, formatter: formatter}, nil
}

// close commits the transaction (if commit is true) or rolls it back, then
// closes the store, returning whichever error surfaced first.
func (s *session) close(commit bool) error {
	var err error
	if commit {
		err = s.tx.Commit()
	} else {
		err = s.tx.Rollback()
	}
	if closeErr := s.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

func schemaCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and register object schema definitions",
	}
	cmd.AddCommand(schemaValidateCmd(flags))
	cmd.AddCommand(schemaRegisterCmd(flags))
	return cmd
}

func schemaValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema.toml>",
		Short: "Parse and validate a TOML schema definition without registering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			s, err := tomlschema.NewParser().ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("permadb: %w", err)
			}
			formatter, err := output.NewFormatter(cfg.Format)
			if err != nil {
				return err
			}
			out, err := formatter.FormatSchema(s)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func schemaRegisterCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "register <schema.toml>",
		Short: "Register a TOML schema definition as a new version, binding to it if already registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			cfg.SchemaFile = args[0]
			cfg.AllowNewSchema = true

			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("registered as schema version %d\n", sess.tx.SchemaVersion())
			return sess.close(true)
		},
	}
}

func objectCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Create, read, write, and delete objects",
	}
	cmd.AddCommand(objectCreateCmd(flags))
	cmd.AddCommand(objectReadCmd(flags))
	cmd.AddCommand(objectWriteCmd(flags))
	cmd.AddCommand(objectDeleteCmd(flags))
	return cmd
}

func objectCreateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <type>",
		Short: "Create a new object of the given type",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			ot := sess.tx.Schema().ObjType(args[0])
			if ot == nil {
				_ = sess.close(false)
				return fmt.Errorf("permadb: no object type named %q in the bound schema", args[0])
			}
			id, err := sess.tx.Create(ot.StorageID)
			if err != nil {
				_ = sess.close(false)
				return err
			}
			if err := sess.close(true); err != nil {
				return err
			}
			fmt.Println(id.String())
			return nil
		},
	}
}

func objectReadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Read every field of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			id, err := objid.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("permadb: %w", err)
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			view, err := readObject(sess.tx, id)
			if err != nil {
				_ = sess.close(false)
				return err
			}
			out, err := sess.formatter.FormatObject(view)
			if err != nil {
				_ = sess.close(false)
				return err
			}
			if err := sess.close(false); err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

// readObject renders every Simple/Reference/Counter/Set/List/Map field of
// id into an output.ObjectView, skipping nothing: a CLI read should show
// the object exactly as the core holds it.
func readObject(tx *txn.Tx, id objid.ObjId) (output.ObjectView, error) {
	ot := tx.Schema().ObjTypeByStorageID(id.TypeStorageID())
	if ot == nil {
		return output.ObjectView{}, fmt.Errorf("permadb: object %s's type is not in the bound schema", id)
	}
	exists, err := tx.Exists(id)
	if err != nil {
		return output.ObjectView{}, err
	}
	if !exists {
		return output.ObjectView{}, fmt.Errorf("permadb: no object with id %s", id)
	}

	fields := make(map[string]any, len(ot.Fields))
	for _, f := range ot.Fields {
		v, err := readField(tx, id, f)
		if err != nil {
			return output.ObjectView{}, err
		}
		fields[f.Name] = v
	}
	return output.ObjectView{ID: id.String(), TypeName: ot.Name, Fields: fields}, nil
}

func readField(tx *txn.Tx, id objid.ObjId, f *schema.Field) (any, error) {
	switch f.Kind {
	case schema.Simple, schema.Reference:
		v, err := tx.ReadSimple(id, f.StorageID)
		if err != nil {
			return nil, err
		}
		return displayValue(v), nil
	case schema.Counter:
		return tx.ReadCounter(id, f.StorageID)
	case schema.Set:
		vs, err := tx.IterSet(id, f.StorageID)
		if err != nil {
			return nil, err
		}
		return displaySlice(vs), nil
	case schema.List:
		vs, err := tx.GetList(id, f.StorageID)
		if err != nil {
			return nil, err
		}
		return displaySlice(vs), nil
	case schema.Map:
		entries, err := tx.IterMap(id, f.StorageID)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[fmt.Sprint(displayValue(e.Key))] = displayValue(e.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("permadb: unknown field kind %s", f.Kind)
	}
}

// displayValue converts a raw field value into something legible in CLI
// output; []byte in particular renders unreadably under Go's default %v.
func displayValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func displaySlice(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = displayValue(v)
	}
	return out
}

func objectWriteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write <id> <field> <value>",
		Short: "Write a simple or reference field on an object",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			id, err := objid.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("permadb: %w", err)
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			if err := writeField(sess.tx, id, args[1], args[2]); err != nil {
				_ = sess.close(false)
				return err
			}
			return sess.close(true)
		},
	}
}

func writeField(tx *txn.Tx, id objid.ObjId, fieldName, raw string) error {
	ot := tx.Schema().ObjTypeByStorageID(id.TypeStorageID())
	if ot == nil {
		return fmt.Errorf("permadb: object %s's type is not in the bound schema", id)
	}
	f := ot.Field(fieldName)
	if f == nil {
		return fmt.Errorf("permadb: no field named %q on type %q", fieldName, ot.Name)
	}
	value, err := parseFieldValue(f, raw)
	if err != nil {
		return fmt.Errorf("permadb: %w", err)
	}
	return tx.WriteSimple(id, f.StorageID, value)
}

// parseFieldValue converts a command-line string into the Go value
// WriteSimple expects for f's kind: an objid.ObjId for references, or the
// simple type's native representation. The empty string or "nil" clears a
// reference.
func parseFieldValue(f *schema.Field, raw string) (any, error) {
	if f.Kind == schema.Reference {
		if raw == "" || raw == "nil" {
			return nil, nil
		}
		return objid.ParseString(raw)
	}
	if f.Kind != schema.Simple {
		return nil, fmt.Errorf("field %q is a %s field; use the dedicated set/list/map/counter operations", f.Name, f.Kind)
	}
	return parseSimpleValue(f.SimpleType, raw)
}

func parseSimpleValue(t schema.SimpleType, raw string) (any, error) {
	switch t {
	case schema.TypeString, schema.TypeEnum:
		return raw, nil
	case schema.TypeBool:
		return strconv.ParseBool(raw)
	case schema.TypeInt:
		return strconv.ParseInt(raw, 10, 64)
	case schema.TypeFloat:
		return strconv.ParseFloat(raw, 64)
	case schema.TypeBytes:
		return []byte(raw), nil
	default:
		return nil, fmt.Errorf("unsupported simple type %s", t)
	}
}

func objectDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an object, cascading per its fields' on_delete policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			id, err := objid.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("permadb: %w", err)
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			deleted, err := sess.tx.Delete(id)
			if err != nil {
				_ = sess.close(false)
				return err
			}
			if err := sess.close(true); err != nil {
				return err
			}
			fmt.Println(deleted)
			return nil
		},
	}
}

func indexCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Query indexed fields",
	}
	cmd.AddCommand(indexQueryCmd(flags))
	return cmd
}

func indexQueryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query <type> <field> <value>",
		Short: "List every object whose indexed field equals value",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			ids, err := queryIndex(sess.tx, args[0], args[1], args[2])
			if err != nil {
				_ = sess.close(false)
				return err
			}
			if err := sess.close(false); err != nil {
				return err
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				fmt.Println(id.String())
			}
			return nil
		},
	}
}

func queryIndex(tx *txn.Tx, typeName, fieldName, raw string) ([]objid.ObjId, error) {
	ot := tx.Schema().ObjType(typeName)
	if ot == nil {
		return nil, fmt.Errorf("permadb: no object type named %q in the bound schema", typeName)
	}
	f := ot.Field(fieldName)
	if f == nil {
		return nil, fmt.Errorf("permadb: no field named %q on type %q", fieldName, typeName)
	}
	value, err := parseFieldValue(f, raw)
	if err != nil {
		return nil, fmt.Errorf("permadb: %w", err)
	}
	return tx.QueryIndex(typeName, fieldName, value)
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <id> <to-version>",
		Short: "Migrate a single object to a newer registered schema version",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := resolveConfig(flags)
			if err != nil {
				return err
			}
			id, err := objid.ParseString(args[0])
			if err != nil {
				return fmt.Errorf("permadb: %w", err)
			}
			toVersion, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("permadb: invalid target version %q: %w", args[1], err)
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			if err := sess.tx.MigrateSchema(id, toVersion); err != nil {
				_ = sess.close(false)
				return err
			}
			return sess.close(true)
		},
	}
}
