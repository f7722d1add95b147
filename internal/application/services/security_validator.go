package services

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // ValueExpr backing for parsed literals

	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

// SecurityValidator enforces the report query contract: exactly one
// statement, plain SELECT, allowlisted tables only, LIMIT capped at
// constants.ReportRowLimit.
type SecurityValidator struct {
	parser *parser.Parser
}

// NewSecurityValidator creates a new SecurityValidator
func NewSecurityValidator() *SecurityValidator {
	return &SecurityValidator{parser: parser.New()}
}

// ValidateAndRewrite parses the SQL, validates it against the report
// contract, and returns the statement restored with a capped LIMIT.
func (v *SecurityValidator) ValidateAndRewrite(sql string) (string, error) {
	stmtNodes, _, err := v.parser.Parse(sql, "", "")
	if err != nil {
		return "", errors.NewValidationError("sql", fmt.Sprintf("parse error: %v", err))
	}

	if len(stmtNodes) != 1 {
		return "", errors.NewValidationError("sql", "only a single SQL statement is allowed")
	}

	selectStmt, ok := stmtNodes[0].(*ast.SelectStmt)
	if !ok {
		return "", errors.NewValidationError("sql", "only SELECT statements are allowed in reports")
	}

	if selectStmt.SelectIntoOpt != nil {
		return "", errors.NewValidationError("sql", "SELECT INTO is not allowed in reports")
	}

	// Report queries never take row locks.
	selectStmt.LockInfo = nil

	visitor := &reportTableVisitor{}
	selectStmt.Accept(visitor)
	if visitor.err != nil {
		return "", visitor.err
	}

	capLimit(selectStmt)

	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := selectStmt.Restore(restoreCtx); err != nil {
		return "", fmt.Errorf("SQL restore error: %v", err)
	}

	return sb.String(), nil
}

// capLimit forces LIMIT <= constants.ReportRowLimit. A missing or
// unreadable count is replaced with the cap.
func capLimit(stmt *ast.SelectStmt) {
	if stmt.Limit != nil {
		if ve, ok := stmt.Limit.Count.(ast.ValueExpr); ok {
			if n, ok := ve.GetValue().(uint64); ok && n <= uint64(constants.ReportRowLimit) {
				return
			}
		}
	}

	capped := ast.NewValueExpr(uint64(constants.ReportRowLimit), "", "")
	if stmt.Limit == nil {
		stmt.Limit = &ast.Limit{Count: capped}
		return
	}
	stmt.Limit.Count = capped
}

// reportTableVisitor walks the statement and rejects any table reference
// outside the report allowlist. Subqueries are visited too, so a nested
// SELECT cannot smuggle in a foreign table.
type reportTableVisitor struct {
	err error
}

func (v *reportTableVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if v.err != nil {
		return in, true
	}

	if t, ok := in.(*ast.TableName); ok {
		name := t.Name.O
		if name != "" && !constants.IsReportTable(name) {
			v.err = errors.NewPermissionError("read", name)
			return in, true
		}
	}

	return in, false
}

func (v *reportTableVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}
