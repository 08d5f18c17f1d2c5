package commission_fee

// CommissionFee is the pluggable fee model applied to simulated fills. The
// default engine configuration charges nothing; broker-style models can be
// selected per run.
type CommissionFee interface {
	// Calculate the commission fee for a given quantity and returns the fee in USD
	Calculate(quantity float64) float64
}

type Broker string

const (
	BrokerZero              Broker = "zero_commission"
	BrokerInteractiveBroker Broker = "interactive_broker"
)

var AllBrokers = []any{
	BrokerZero,
	BrokerInteractiveBroker,
}

func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
