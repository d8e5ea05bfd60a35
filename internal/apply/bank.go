package apply

import (
	"errors"
	"strings"

	"ipo_applier/internal/broker"
)

// PlaceholderBank is the non-selectable first entry of the bank dropdown.
const PlaceholderBank = "Please choose one"

// ErrNoBankOptions is returned when the form offers no selectable bank.
var ErrNoBankOptions = errors.New("no selectable bank options")

// SelectableBanks drops the placeholder and nameless entries, keeping order.
func SelectableBanks(options []broker.BankOption) []broker.BankOption {
	out := make([]broker.BankOption, 0, len(options))
	for _, o := range options {
		name := strings.TrimSpace(o.Name)
		if name == "" || name == PlaceholderBank {
			continue
		}
		o.Name = name
		out = append(out, o)
	}
	return out
}

// ResolveBank picks the disbursing bank for an application.
//
// An empty preference selects the first selectable option. Otherwise the
// first option whose name contains the preference, or is contained in it,
// ignoring case, wins. Without a match the first selectable option is used.
func ResolveBank(preference string, options []broker.BankOption) (broker.BankOption, bool, error) {
	banks := SelectableBanks(options)
	if len(banks) == 0 {
		return broker.BankOption{}, false, ErrNoBankOptions
	}

	want := strings.ToUpper(strings.TrimSpace(preference))
	if want == "" {
		return banks[0], true, nil
	}

	for _, b := range banks {
		have := strings.ToUpper(b.Name)
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return b, true, nil
		}
	}
	return banks[0], false, nil
}
