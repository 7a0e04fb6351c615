package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/privsys/ropa-registry/modules/records/domain/types"
)

// Scoring expressions run against the record's columns as a string map.
// Required columns carry half the score, three supporting columns another
// 30%, and two conditional bonuses the rest. Capped at 10.
const (
	requiredFilledExpr = `["processing_activity_name", "controller_name", "processing_purpose",
"legal_basis", "data_categories", "data_subjects", "retention_period"]
.filter(f, record[f].trim() != "").size()`

	importantFilledExpr = `["security_measures", "dpo_name", "recipients"]
.filter(f, record[f].trim() != "").size()`

	legitimateInterestsExpr = `record["legal_basis"] == "Legitimate Interests"
&& record["legitimate_interests"].trim() != ""`

	transferSafeguardsExpr = `record["third_country_transfers"].trim() != ""
&& record["safeguards"].trim() != ""`
)

var newComplianceCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.StringType)),
		ext.Strings(),
	)
}

var complianceProgramCache sync.Map

// ComplianceScore rates a record 0..10 by how completely it is filled in.
func ComplianceScore(record types.Record) (float64, error) {
	columns := recordColumns(record)

	requiredFilled, err := evalIntExpr(requiredFilledExpr, columns)
	if err != nil {
		return 0, err
	}
	importantFilled, err := evalIntExpr(importantFilledExpr, columns)
	if err != nil {
		return 0, err
	}

	score := float64(requiredFilled)/7*5 + float64(importantFilled)/3*3

	legit, err := evalBoolExpr(legitimateInterestsExpr, columns)
	if err != nil {
		return 0, err
	}
	if legit {
		score++
	}
	transfers, err := evalBoolExpr(transferSafeguardsExpr, columns)
	if err != nil {
		return 0, err
	}
	if transfers {
		score++
	}

	if score > 10 {
		score = 10
	}
	return score, nil
}

func evalIntExpr(expr string, columns map[string]string) (int64, error) {
	out, err := evalExpr(expr, cel.IntType, columns)
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

func evalBoolExpr(expr string, columns map[string]string) (bool, error) {
	out, err := evalExpr(expr, cel.BoolType, columns)
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func evalExpr(expr string, outputType *cel.Type, columns map[string]string) (any, error) {
	program, err := loadOrCompileComplianceProgram(expr, outputType)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(map[string]any{"record": columns})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func loadOrCompileComplianceProgram(expr string, outputType *cel.Type) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := complianceProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newComplianceCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != outputType {
		return nil, errors.New("expression output type mismatch")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	complianceProgramCache.Store(expr, program)
	return program, nil
}

// recordColumns flattens the scored and validated columns into the map the
// CEL programs index. Every key is always present so indexing never errors.
func recordColumns(record types.Record) map[string]string {
	return map[string]string{
		"processing_activity_name": record.ActivityName,
		"controller_name":          record.ControllerName,
		"processing_purpose":       record.ProcessingPurpose,
		"legal_basis":              record.LegalBasis,
		"legitimate_interests":     record.LegitimateInterests,
		"data_categories":          record.DataCategories,
		"special_categories":       record.SpecialCategories,
		"data_subjects":            record.DataSubjects,
		"recipients":               record.Recipients,
		"third_country_transfers":  record.ThirdCountryTransfers,
		"safeguards":               record.Safeguards,
		"retention_period":         record.RetentionPeriod,
		"security_measures":        record.SecurityMeasures,
		"dpo_name":                 record.DPOName,
	}
}
