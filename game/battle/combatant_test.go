package battle

import (
	"testing"

	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/model"
)

func baseCharacter() model.Character {
	return model.Character{
		ID: 7, AccountID: 3, Name: "Riselle", ClassID: 1, RaceID: 1, Level: 3,
		HP: 80, MaxHP: 100, MP: 40, MaxMP: 50,
		Atk: 20, Def: 5, MagicOff: 12, MagicDef: 8, Speed: 10, Luck: 4,
		LimitGauge: 30, BreakTier: 1,
	}
}

func TestBuildCombatantAggregatesEquipment(t *testing.T) {
	store := testStore()
	sword, _ := store.Item(itSword)
	armor, _ := store.Item(itArmor)

	c := BuildCombatant(baseCharacter(), nil, []*content.ItemDef{sword, armor}, store)

	if c.Atk != 25 {
		t.Errorf("Atk = %d, want 25 (base 20 + sword 5)", c.Atk)
	}
	if c.Def != 8 {
		t.Errorf("Def = %d, want 8 (base 5 + armor 3)", c.Def)
	}
	if len(c.WeaponElements) != 1 || c.WeaponElements[0] != elFire {
		t.Errorf("WeaponElements = %v, want [%d]", c.WeaponElements, elFire)
	}
	if len(c.WeaponInflicts) != 1 || c.WeaponInflicts[0] != stPoison {
		t.Errorf("WeaponInflicts = %v, want [%d]", c.WeaponInflicts, stPoison)
	}
	if !c.ArmorBlocks[stPoison] {
		t.Error("armor block list missing poison")
	}
}

func TestBuildCombatantAppliesStatusMultipliers(t *testing.T) {
	store := testStore()
	active := []model.CharacterStatus{{CharID: 7, StatusID: stWeak, TurnsLeft: 2}}

	c := BuildCombatant(baseCharacter(), active, nil, store)

	if c.Atk != 10 {
		t.Errorf("Atk = %d, want 10 (floor of 20 * 0.5)", c.Atk)
	}
	if si := c.Status(stWeak); si == nil || si.TurnsLeft != 2 {
		t.Fatalf("weakness instance missing or wrong duration: %+v", si)
	}
}

func TestBuildCombatantClampsResources(t *testing.T) {
	ch := baseCharacter()
	ch.HP = 150 // above max
	ch.MP = -3
	c := BuildCombatant(ch, nil, nil, testStore())
	if c.HP != c.MaxHP {
		t.Errorf("HP = %d, want clamped to %d", c.HP, c.MaxHP)
	}
	if c.MP != 0 {
		t.Errorf("MP = %d, want clamped to 0", c.MP)
	}
}

func TestBuildCombatantSkipsUnknownStatus(t *testing.T) {
	active := []model.CharacterStatus{{CharID: 7, StatusID: 9999, TurnsLeft: 2}}
	c := BuildCombatant(baseCharacter(), active, nil, testStore())
	if len(c.Statuses) != 0 {
		t.Errorf("statuses = %v, want empty", c.Statuses)
	}
}

func TestAddStatusRefreshesInsteadOfStacking(t *testing.T) {
	store := testStore()
	def, _ := store.Status(stPoison)
	c := newFighter(1, "A")

	_, isNew := c.AddStatus(def, 3)
	if !isNew {
		t.Fatal("first application should be new")
	}
	c.Statuses[0].TurnsLeft = 1

	si, isNew := c.AddStatus(def, 3)
	if isNew {
		t.Fatal("re-application must refresh, not stack")
	}
	if len(c.Statuses) != 1 {
		t.Fatalf("instances = %d, want 1", len(c.Statuses))
	}
	if si.TurnsLeft != 3 {
		t.Errorf("TurnsLeft = %d, want refreshed to 3", si.TurnsLeft)
	}
}

func TestResourceMutationsStayInRange(t *testing.T) {
	c := newFighter(1, "A")

	c.ApplyDamage(9999)
	if c.HP != 0 {
		t.Errorf("HP = %d, want floored at 0", c.HP)
	}

	applied := c.HealHP(9999)
	if c.HP != c.MaxHP {
		t.Errorf("HP = %d, want clamped to %d", c.HP, c.MaxHP)
	}
	if applied != c.MaxHP {
		t.Errorf("applied = %d, want %d", applied, c.MaxHP)
	}

	c.MP = 10
	if got := c.HealMP(5); got != 5 {
		t.Errorf("HealMP applied = %d, want 5", got)
	}
	if got := c.HealMP(9999); got != 35 {
		t.Errorf("HealMP applied = %d, want 35 (clamped)", got)
	}
}

func TestFillLimitClampsAtFull(t *testing.T) {
	c := newFighter(1, "A")
	c.FillLimit(60)
	c.FillLimit(60)
	if c.LimitGauge != 100 {
		t.Errorf("LimitGauge = %d, want clamped to 100", c.LimitGauge)
	}
	c.FillLimit(-5)
	if c.LimitGauge != 100 {
		t.Errorf("LimitGauge = %d, negative gain must not drain", c.LimitGauge)
	}
}

func TestCommandDisabledSentinel(t *testing.T) {
	store := testStore()
	curse, _ := store.Status(stCurse)
	c := newFighter(1, "A")
	c.AddStatus(curse, 2)

	for _, id := range []int64{cmdAttack, cmdDefend, cmdFlee} {
		if !c.CommandDisabled(id) {
			t.Errorf("command %d should be disabled by the sentinel", id)
		}
	}
}
