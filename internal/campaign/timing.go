package campaign

import "github.com/ppiankov/malcamp/internal/model"

// TreatmentConfig wraps the drug config in an exponentially distributed delay
// with mean 1/rate. A non-positive rate returns drugCfg unchanged.
func TreatmentConfig(rate float64, drugCfg model.Intervention, drugs []model.Intervention) model.Intervention {
	if rate <= 0 {
		return drugCfg
	}
	return model.DelayedIntervention{
		Coverage:          model.Float(1.0),
		DelayDistribution: model.DelayExponential,
		DelayPeriod:       1 / rate,
		Configs:           append([]model.Intervention(nil), drugs...),
	}
}

// FixedDelay distributes configs after exactly days days.
func FixedDelay(days float64, configs []model.Intervention) model.DelayedIntervention {
	return model.DelayedIntervention{
		DelayDistribution: model.DelayFixed,
		DelayPeriod:       days,
		Configs:           append([]model.Intervention(nil), configs...),
	}
}

// WithDisqualifying sets Disqualifying_Properties on interventions that carry
// them. Other interventions are returned unchanged.
func WithDisqualifying(iv model.Intervention, props []string) model.Intervention {
	if len(props) == 0 {
		return iv
	}
	props = append([]string(nil), props...)
	switch v := iv.(type) {
	case model.AntimalarialDrug:
		v.DisqualifyingProperties = props
		return v
	case model.MultiInterventionDistributor:
		v.DisqualifyingProperties = props
		return v
	case model.DelayedIntervention:
		v.DisqualifyingProperties = props
		return v
	}
	return iv
}
