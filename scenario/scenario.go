/*
Package scenario seeds a store with a loan product, a case, and its history.

PURPOSE:

	A scenario is a YAML document describing everything a disbursement
	evaluation reads: the chart of accounts, the product with its account
	assignments and charges, the case, loss provisioning steps, tasks, and
	the journals already posted. Scenarios drive the CLI demo and the
	end-to-end tests.

BUILT-IN SCENARIOS (scenarios/*.yaml):

	fresh-loan:        Approved case, nothing disbursed yet
	partial-disbursal: 600.00 of 1000.00 already disbursed, with accrued interest
	blocked-by-task:   A mandatory signature task is still open

HOW SEEDING WORKS:
 1. Save accounts
 2. Save the product, then its charges (defaults when none are listed)
 3. Save loss provisioning steps and task definitions
 4. Save the case and its task instances
 5. Post journals through the ledger

Journal identifiers are derived from the case and the journal's position,
so seeding the same scenario twice skips the journals already posted.

SEE ALSO:
  - store/sqlite: The usual target
  - cmd/lending: The seed command
*/
package scenario

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/calendar"
	"github.com/warp/lending-engine/lending"
)

//go:embed scenarios/*.yaml
var builtin embed.FS

// =============================================================================
// DOCUMENT
// =============================================================================

type Scenario struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Accounts      []Account           `yaml:"accounts"`
	Product       Product             `yaml:"product"`
	Charges       []Charge            `yaml:"charges"`
	LossProvision []LossProvisionStep `yaml:"loss_provision"`
	Tasks         []Task              `yaml:"tasks"`
	Case          Case                `yaml:"case"`
	Journals      []Journal           `yaml:"journals"`
}

type Account struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
}

type Product struct {
	Identifier              string            `yaml:"identifier"`
	Name                    string            `yaml:"name"`
	MinorCurrencyUnitDigits int32             `yaml:"minor_currency_unit_digits"`
	AccountAssignments      map[string]string `yaml:"account_assignments"`
}

type Charge struct {
	Identifier     string          `yaml:"identifier"`
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description"`
	AccrueAction   string          `yaml:"accrue_action"`
	ChargeAction   string          `yaml:"charge_action"`
	ChargeMethod   string          `yaml:"charge_method"`
	Amount         decimal.Decimal `yaml:"amount"`
	ProportionalTo string          `yaml:"proportional_to"`
	From           string          `yaml:"from"`
	To             string          `yaml:"to"`
	Accrual        string          `yaml:"accrual"`
	ReadOnly       bool            `yaml:"read_only"`
}

type LossProvisionStep struct {
	DaysLate   int             `yaml:"days_late"`
	Percentage decimal.Decimal `yaml:"percentage"`
}

type Task struct {
	Identifier  string   `yaml:"identifier"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Actions     []string `yaml:"actions"`
	FourEyes    bool     `yaml:"four_eyes"`
	Mandatory   bool     `yaml:"mandatory"`

	// Executed marks the case's instance as done on that date.
	Executed   string `yaml:"executed"`
	ExecutedBy string `yaml:"executed_by"`
	Comment    string `yaml:"comment"`
}

type Case struct {
	Identifier         string            `yaml:"identifier"`
	State              string            `yaml:"state"`
	Customer           string            `yaml:"customer"`
	MaximumBalance     decimal.Decimal   `yaml:"maximum_balance"`
	PaymentSize        decimal.Decimal   `yaml:"payment_size"`
	Interest           decimal.Decimal   `yaml:"interest"`
	TermUnit           string            `yaml:"term_unit"`
	TermMaximum        int               `yaml:"term_maximum"`
	PaymentCycleUnit   string            `yaml:"payment_cycle_unit"`
	PaymentCyclePeriod int               `yaml:"payment_cycle_period"`
	AccountAssignments map[string]string `yaml:"account_assignments"`
}

// Journal is one balanced posting. Action tags it with the case's message
// for that action; Message is used verbatim when Action is empty.
type Journal struct {
	Date    string          `yaml:"date"`
	Action  string          `yaml:"action"`
	Message string          `yaml:"message"`
	Debit   string          `yaml:"debit"`
	Credit  string          `yaml:"credit"`
	Amount  decimal.Decimal `yaml:"amount"`
}

// =============================================================================
// LOADING
// =============================================================================

// Parse decodes and validates a scenario document.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}
	return &sc, nil
}

// LoadFile parses the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Builtin returns the built-in scenario with the given id.
func Builtin(id string) (*Scenario, error) {
	f, err := builtin.Open(path.Join("scenarios", id+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}
	defer f.Close()
	return Parse(f)
}

// BuiltinIDs lists the built-in scenarios in name order.
func BuiltinIDs() []string {
	entries, _ := builtin.ReadDir("scenarios")
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(ids)
	return ids
}

// Validate checks what the store would otherwise reject late or accept wrongly.
func (sc *Scenario) Validate() error {
	var errs []error
	if sc.Product.Identifier == "" {
		errs = append(errs, errors.New("product.identifier is required"))
	}
	if sc.Case.Identifier == "" {
		errs = append(errs, errors.New("case.identifier is required"))
	}
	if sc.Product.MinorCurrencyUnitDigits < 0 {
		errs = append(errs, errors.New("product.minor_currency_unit_digits must not be negative"))
	}
	for _, unit := range []string{sc.Case.TermUnit, sc.Case.PaymentCycleUnit} {
		if !calendar.TemporalUnit(unit).Valid() {
			errs = append(errs, fmt.Errorf("temporal unit %q is not one of weeks, months, years", unit))
		}
	}
	if sc.Case.TermMaximum < 1 || sc.Case.PaymentCyclePeriod < 1 {
		errs = append(errs, errors.New("case term_maximum and payment_cycle_period must be positive"))
	}
	for _, a := range sc.Accounts {
		switch accounting.AccountType(a.Type) {
		case accounting.Asset, accounting.Liability, accounting.Equity, accounting.Revenue, accounting.Expense:
		default:
			errs = append(errs, fmt.Errorf("account %s: unknown type %q", a.Identifier, a.Type))
		}
	}
	for _, c := range sc.Charges {
		if c.AccrueAction != "" && !lending.Action(c.AccrueAction).Valid() {
			errs = append(errs, fmt.Errorf("charge %s: unknown accrue_action %q", c.Identifier, c.AccrueAction))
		}
		if !lending.Action(c.ChargeAction).Valid() {
			errs = append(errs, fmt.Errorf("charge %s: unknown charge_action %q", c.Identifier, c.ChargeAction))
		}
		switch lending.ChargeMethod(c.ChargeMethod) {
		case lending.ChargeFixed, lending.ChargeProportional, lending.ChargeInterest:
		default:
			errs = append(errs, fmt.Errorf("charge %s: unknown charge_method %q", c.Identifier, c.ChargeMethod))
		}
	}
	for _, t := range sc.Tasks {
		for _, a := range t.Actions {
			if !lending.Action(a).Valid() {
				errs = append(errs, fmt.Errorf("task %s: unknown action %q", t.Identifier, a))
			}
		}
		if t.Executed != "" {
			if _, err := calendar.Parse(t.Executed); err != nil {
				errs = append(errs, fmt.Errorf("task %s: %w", t.Identifier, err))
			}
		}
	}
	for i, j := range sc.Journals {
		if _, err := parseJournalDate(j.Date); err != nil {
			errs = append(errs, fmt.Errorf("journal %d: %w", i, err))
		}
		if j.Action != "" && !lending.Action(j.Action).Valid() {
			errs = append(errs, fmt.Errorf("journal %d: unknown action %q", i, j.Action))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// CONVERSION
// =============================================================================

func (sc *Scenario) LendingProduct() lending.Product {
	return lending.Product{
		Identifier:              sc.Product.Identifier,
		Name:                    sc.Product.Name,
		MinorCurrencyUnitDigits: sc.Product.MinorCurrencyUnitDigits,
		AccountAssignments:      sc.Product.AccountAssignments,
	}
}

func (sc *Scenario) LendingCase() lending.Case {
	c := sc.Case
	return lending.Case{
		Identifier:        c.Identifier,
		ProductIdentifier: sc.Product.Identifier,
		CurrentState:      c.State,
		Parameters: lending.CaseParameters{
			CustomerIdentifier:  c.Customer,
			BalanceRangeMaximum: c.MaximumBalance,
			PaymentSize:         c.PaymentSize,
			Interest:            c.Interest,
			TermRange:           lending.TermRange{TemporalUnit: calendar.TemporalUnit(c.TermUnit), Maximum: c.TermMaximum},
			PaymentCycle:        lending.PaymentCycle{TemporalUnit: calendar.TemporalUnit(c.PaymentCycleUnit), Period: c.PaymentCyclePeriod},
		},
		AccountAssignments: c.AccountAssignments,
	}
}

// DataContext is the evaluation context the scenario describes.
func (sc *Scenario) DataContext() lending.DataContextOfAction {
	return lending.DataContextOfAction{Product: sc.LendingProduct(), Case: sc.LendingCase()}
}

// ChargeDefinitions returns the listed charges, or the defaults when none are.
func (sc *Scenario) ChargeDefinitions() []lending.ChargeDefinition {
	if len(sc.Charges) == 0 {
		return lending.DefaultChargeDefinitions()
	}
	defs := make([]lending.ChargeDefinition, 0, len(sc.Charges))
	for _, c := range sc.Charges {
		defs = append(defs, lending.ChargeDefinition{
			Identifier:               c.Identifier,
			Name:                     c.Name,
			Description:              c.Description,
			AccrueAction:             lending.Action(c.AccrueAction),
			ChargeAction:             lending.Action(c.ChargeAction),
			ChargeMethod:             lending.ChargeMethod(c.ChargeMethod),
			Amount:                   c.Amount,
			ProportionalTo:           c.ProportionalTo,
			FromAccountDesignator:    c.From,
			ToAccountDesignator:      c.To,
			AccrualAccountDesignator: c.Accrual,
			ReadOnly:                 c.ReadOnly,
		})
	}
	return defs
}

func (sc *Scenario) lossProvisionSteps() []lending.LossProvisionStep {
	steps := make([]lending.LossProvisionStep, 0, len(sc.LossProvision))
	for _, s := range sc.LossProvision {
		steps = append(steps, lending.LossProvisionStep{DaysLate: s.DaysLate, Percentage: s.Percentage})
	}
	return steps
}

func (t Task) definition() lending.TaskDefinition {
	actions := make([]lending.Action, 0, len(t.Actions))
	for _, a := range t.Actions {
		actions = append(actions, lending.Action(a))
	}
	return lending.TaskDefinition{
		Identifier:  t.Identifier,
		Name:        t.Name,
		Description: t.Description,
		Actions:     actions,
		FourEyes:    t.FourEyes,
		Mandatory:   t.Mandatory,
	}
}

func (t Task) instance() lending.TaskInstance {
	inst := lending.TaskInstance{TaskIdentifier: t.Identifier, Comment: t.Comment}
	if t.Executed != "" {
		executed := calendar.MustParse(t.Executed).StartOfDay()
		inst.ExecutedOn = &executed
		inst.ExecutedBy = t.ExecutedBy
	}
	return inst
}

// journal converts the i-th journal. Its identifier is stable for the case.
func (sc *Scenario) journal(i int) (accounting.Journal, error) {
	j := sc.Journals[i]
	at, err := parseJournalDate(j.Date)
	if err != nil {
		return accounting.Journal{}, err
	}
	message := j.Message
	if j.Action != "" {
		message = sc.DataContext().MessageForCharge(lending.Action(j.Action))
	}
	key := fmt.Sprintf("%s/%d", sc.DataContext().CompoundIdentifier(), i)
	return accounting.Journal{
		TransactionIdentifier: uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
		TransactionDate:       at,
		Message:               message,
		Debtors:               []accounting.Posting{{AccountID: j.Debit, Amount: j.Amount}},
		Creditors:             []accounting.Posting{{AccountID: j.Credit, Amount: j.Amount}},
	}, nil
}

// parseJournalDate accepts a day or a full RFC 3339 timestamp.
func parseJournalDate(s string) (time.Time, error) {
	if d, err := calendar.Parse(s); err == nil {
		return d.StartOfDay(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid journal date %q", s)
	}
	return t.UTC(), nil
}
