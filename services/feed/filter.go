package feed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zhouzhuojie/conditions"

	"github.com/astranet-network/gateway/types"
	"github.com/astranet-network/gateway/utils"
)

// availableFilters contains the fields that can be referenced by transaction filters
var availableFilters = []string{
	"gas", "gas_price", "value", "to", "from", "method_id", "type", "chain_id", "max_fee_per_gas", "max_priority_fee_per_gas",
}

var (
	comparisonMatcher = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*(<=|>=|!=|==|in|=|<|>)\s*(\[[^]]*]|[^\s()]+)`)
	openParenSpacer   = regexp.MustCompile(`\(\s+`)
	closeParenSpacer  = regexp.MustCompile(`\s+\)`)
	emptyValueFinder  = regexp.MustCompile(`\(([^()]+)\)`)
)

// ParseFilter compiles a client filter string into a conditions expression.
// Clients write filters in a loose python-like syntax ("to = 0xaa and value > 100"),
// which is first rewritten into the conditions grammar before parsing.
func ParseFilter(filters string) (string, conditions.Expr, error) {
	goFilters := rewriteFilterString(filters)

	// the parser stops at the first complete expression, so parse the whole
	// string as one group to reject trailing clauses it would otherwise drop
	grouped := "(" + strings.ToLower(strings.Replace(goFilters, "'", "\"", -1)) + ")"
	parser := conditions.NewParser(strings.NewReader(grouped))
	expr, err := parser.Parse()
	if err != nil {
		return goFilters, nil, fmt.Errorf("%w %q: %v", ErrInvalidFilterSyntax, filters, err)
	}
	if paren, ok := expr.(*conditions.ParenExpr); ok {
		expr = paren.Expr
	}

	return goFilters, expr, nil
}

// ValidateFilters compiles a filter string and dry-runs it against an empty
// transaction, so that unknown fields and type mismatches are rejected at
// subscription time rather than on the first matching notification.
func ValidateFilters(filters string) (conditions.Expr, error) {
	_, expr, err := ParseFilter(filters)
	if err != nil {
		return nil, err
	}

	if err = evaluateFilters(expr); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidFilterSyntax, filters, err)
	}

	return expr, nil
}

// IsCorrectGasPriceFilters checks that filters mixing legacy and dynamic fee
// fields also constrain the transaction type, since gas_price and the fee cap
// fields are mutually exclusive on any single transaction.
func IsCorrectGasPriceFilters(filters []string) bool {
	if utils.Exists("gas_price", filters) &&
		(utils.Exists("max_fee_per_gas", filters) || utils.Exists("max_priority_fee_per_gas", filters)) {
		return utils.Exists("type", filters)
	}
	return true
}

// rewriteFilterString converts each comparison clause into the conditions
// grammar: fields become {placeholders}, single "=" becomes "==", and
// non-numeric values are quoted and 0x-prefixed. Clauses are parenthesized
// individually, while parentheses written by the client are preserved.
func rewriteFilterString(filters string) string {
	goFilters := comparisonMatcher.ReplaceAllStringFunc(filters, func(match string) string {
		groups := comparisonMatcher.FindStringSubmatch(match)
		field, operator, value := groups[1], groups[2], groups[3]

		if operator == "=" {
			operator = "=="
		}

		if strings.HasPrefix(value, "[") {
			value = rewriteArrayValue(value)
		} else {
			value = rewriteSingleValue(value)
		}

		return fmt.Sprintf("({%v} %v %v)", field, operator, value)
	})

	goFilters = openParenSpacer.ReplaceAllString(goFilters, "(")
	return closeParenSpacer.ReplaceAllString(goFilters, ")")
}

func rewriteArrayValue(value string) string {
	items := strings.Split(strings.Trim(value, "[]"), ",")
	rewritten := make([]string, 0, len(items))
	for _, item := range items {
		rewritten = append(rewritten, rewriteSingleValue(strings.TrimSpace(item)))
	}
	return "[" + strings.Join(rewritten, ",") + "]"
}

func rewriteSingleValue(value string) string {
	if _, err := strconv.Atoi(value); err == nil {
		return value
	}
	if strings.HasPrefix(value, "'") || strings.HasPrefix(value, "\"") {
		return value
	}
	if strings.HasPrefix(value, "0x") {
		return "'" + value + "'"
	}
	return "'0x" + value + "'"
}

func evaluateFilters(expr conditions.Expr) error {
	if err := filtersHasEmptyValue(expr.String()); err != nil {
		return err
	}

	_, err := conditions.Evaluate(expr, types.EmptyFilteredTransactionMap)
	return err
}

func filtersHasEmptyValue(rawFilters string) error {
	for _, group := range emptyValueFinder.FindAllStringSubmatch(rawFilters, -1) {
		for _, filter := range availableFilters {
			if group[1] == filter || strings.Contains(group[1], filter+",") {
				return fmt.Errorf("filter %v must have a value", group[1])
			}
		}
	}
	return nil
}
