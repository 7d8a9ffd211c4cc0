package sqlkv

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/format"
)

// tableName is the single table sqlkv stores every KV entry in: one row
// per key, exactly mirroring the abstract contract's (key, value) pairs.
const tableName = "permadb_kv"

// bootstrapDDL renders the CREATE TABLE IF NOT EXISTS statement sqlkv
// issues on Open. It is built with parser/format's RestoreCtx writers
// rather than a raw string template so identifier quoting and keyword
// casing go through the same escaping rules as any other generated DDL,
// even though no parser.Parser AST is involved here — the table shape is
// fixed, not user-supplied.
func bootstrapDDL() string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)

	ctx.WriteKeyWord("CREATE TABLE IF NOT EXISTS ")
	ctx.WriteName(tableName)
	ctx.WritePlain(" (")
	ctx.WriteName("k")
	ctx.WritePlain(" VARBINARY(3072) NOT NULL, ")
	ctx.WriteName("v")
	ctx.WritePlain(" LONGBLOB NOT NULL, PRIMARY KEY (")
	ctx.WriteName("k")
	ctx.WritePlain(")) ENGINE=InnoDB")

	return sb.String()
}
