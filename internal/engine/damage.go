package engine

import (
	"math"
)

// Source is the random stream the damage calculator draws from. Injecting
// it lets tests pin crit/miss outcomes; production code passes a
// rand.Rand.
type Source interface {
	Float64() float64
}

// mitigationScale tunes the diminishing-returns curve converting raw
// defense into damage reduction. Defense never fully nullifies a hit.
const mitigationScale = 100.0

// maxDodgeChance caps the effective miss probability so a fight can never
// stall on an untouchable target.
const maxDodgeChance = 0.95

// DamageInput bundles the attacker/defender numbers for one hit.
type DamageInput struct {
	Attack     int
	Defense    int
	CritRate   float64
	CritDamage float64
	Dodge      float64
	Accuracy   float64
}

// DamageResult is the outcome of one damage resolution.
type DamageResult struct {
	Damage     int  `json:"damage"`
	IsCritical bool `json:"is_critical"`
	IsMiss     bool `json:"is_miss"`
}

// CalculateDamage resolves one hit. The miss roll happens first (a dodged
// hit deals 0 and skips the crit roll); otherwise the mitigated base is
// floored at 1 and multiplied by the crit multiplier on a successful crit
// roll. Pure with respect to its numeric inputs: rng draws are the only
// non-determinism.
func CalculateDamage(in DamageInput, rng Source) DamageResult {
	missChance := in.Dodge - in.Accuracy
	if missChance < 0 {
		missChance = 0
	}
	if missChance > maxDodgeChance {
		missChance = maxDodgeChance
	}
	if missChance > 0 && rng.Float64() < missChance {
		return DamageResult{Damage: 0, IsMiss: true}
	}

	base := BaseDamage(in.Attack, in.Defense)
	crit := in.CritRate > 0 && rng.Float64() < in.CritRate
	if crit {
		mult := in.CritDamage
		if mult < 1 {
			mult = 1
		}
		base = int(math.Round(float64(base) * mult))
		if base < 1 {
			base = 1
		}
	}
	return DamageResult{Damage: base, IsCritical: crit}
}

// BaseDamage applies the mitigation curve without any random component.
// Higher defense never increases damage; higher attack never decreases
// it; the floor is 1.
func BaseDamage(attack, defense int) int {
	if defense < 0 {
		defense = 0
	}
	mitigation := float64(defense) / (float64(defense) + mitigationScale)
	reduced := float64(attack) - float64(defense)*mitigation
	dmg := int(math.Round(reduced))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}
