package domain

import "fmt"

type Command string

const (
	CommandLong  Command = "long"
	CommandShort Command = "short"
	CommandClose Command = "close"
	CommandHold  Command = "hold"
)

// Decision is produced once per symbol per cycle.
type Decision struct {
	Command        Command `json:"command"`
	Leverage       int     `json:"leverage,omitempty"`
	Reasoning      string  `json:"reasoning"`
	TradeAmountUSD float64 `json:"trade_amount_usd"`
}

// String renders the command the way the trade log and strategist read it ("long 20x").
func (d Decision) String() string {
	if d.Command == CommandLong || d.Command == CommandShort {
		return fmt.Sprintf("%s %dx", d.Command, d.Leverage)
	}
	return string(d.Command)
}

func Hold(reason string) Decision {
	return Decision{Command: CommandHold, Reasoning: reason}
}

func Close(reason string) Decision {
	return Decision{Command: CommandClose, Reasoning: reason}
}
