package cmd

import (
	"fmt"
	"os"

	"bank-reconciliation/internal/domain"
	"bank-reconciliation/internal/gateway"
	"bank-reconciliation/internal/usecase"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// actionScript is a YAML list of user actions replayed on one statement line.
//
//	statement_line: BANK_A_1
//	commit: true
//	actions:
//	  - kind: add_source_entries
//	    entries: [INV_2019_0001]
//	    allow_partial: true
//	  - kind: edit_line
//	    index: 2
//	    field: account
//	    value: "400000"
type actionScript struct {
	StatementLine string         `yaml:"statement_line"`
	Commit        bool           `yaml:"commit"`
	Actions       []scriptAction `yaml:"actions"`
}

type scriptAction struct {
	Kind         usecase.CommandKind `yaml:"kind"`
	Entries      []string            `yaml:"entries"`
	Rule         string              `yaml:"rule"`
	AllowPartial bool                `yaml:"allow_partial"`
	Index        int                 `yaml:"index"`
	Field        usecase.LineField   `yaml:"field"`
	Value        yaml.Node           `yaml:"value"`
}

func loadScript(path string) (*actionScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	var script actionScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	return &script, nil
}

// commands converts the script actions, resolving catalog references.
func (s *actionScript) commands(catalog *gateway.Catalog) ([]usecase.Command, error) {
	cmds := make([]usecase.Command, 0, len(s.Actions))
	for i, a := range s.Actions {
		cmd, err := a.command(catalog)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (a scriptAction) command(catalog *gateway.Catalog) (usecase.Command, error) {
	switch a.Kind {
	case usecase.CommandAddSourceEntries:
		return usecase.AddSourceEntriesCommand{EntryIDs: a.Entries, RuleID: a.Rule, AllowPartial: a.AllowPartial}, nil
	case usecase.CommandRemoveLine:
		return usecase.RemoveLineCommand{Index: a.Index}, nil
	case usecase.CommandEditLine:
		value, err := editValue(catalog, a.Field, &a.Value)
		if err != nil {
			return nil, err
		}
		return usecase.EditLineCommand{Index: a.Index, Field: a.Field, Value: value}, nil
	case usecase.CommandApplyRule:
		return usecase.ApplyRuleCommand{RuleID: a.Rule}, nil
	case usecase.CommandReset:
		return usecase.ResetCommand{}, nil
	case usecase.CommandTriggerMatching:
		return usecase.TriggerMatchingCommand{}, nil
	default:
		return nil, domain.NewDomainError(domain.ErrorUnknownCommand, "kind", fmt.Sprintf("unknown action %q", a.Kind))
	}
}

// editValue decodes the raw YAML value into the type EditLine expects for field.
func editValue(catalog *gateway.Catalog, field usecase.LineField, node *yaml.Node) (any, error) {
	switch field {
	case usecase.FieldName:
		var v string
		err := node.Decode(&v)
		return v, err

	case usecase.FieldAccount:
		var id string
		if err := node.Decode(&id); err != nil {
			return nil, err
		}
		return catalog.Account(id)

	case usecase.FieldPartner:
		var id string
		if err := node.Decode(&id); err != nil {
			return nil, err
		}
		if id == "" {
			return (*domain.Partner)(nil), nil
		}
		return catalog.Partner(id)

	case usecase.FieldCurrency:
		var code string
		if err := node.Decode(&code); err != nil {
			return nil, err
		}
		return catalog.Currency(code)

	case usecase.FieldAmountInCurrency, usecase.FieldBalance:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		return decimal.NewFromString(raw)

	case usecase.FieldTaxes:
		var ids []string
		if err := node.Decode(&ids); err != nil {
			return nil, err
		}
		taxes := make([]domain.Tax, 0, len(ids))
		for _, id := range ids {
			tax, err := catalog.Tax(id)
			if err != nil {
				return nil, err
			}
			taxes = append(taxes, tax)
		}
		return taxes, nil

	case usecase.FieldAnalyticDistribution:
		var raw map[string]string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}
		dist := make(map[string]decimal.Decimal, len(raw))
		for k, v := range raw {
			pct, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("analytic distribution %s: %w", k, err)
			}
			dist[k] = pct
		}
		return dist, nil

	case usecase.FieldForcePriceIncluded:
		var v bool
		err := node.Decode(&v)
		return v, err

	default:
		return nil, domain.NewDomainError(domain.ErrorInvalidInput, "field", fmt.Sprintf("unknown field %q", field))
	}
}
