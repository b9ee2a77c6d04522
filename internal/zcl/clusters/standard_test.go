package clusters

import "testing"

func TestStandardUniqueIDs(t *testing.T) {
	seen := make(map[uint16]string)
	for _, c := range Standard() {
		if prev, ok := seen[c.ID]; ok {
			t.Errorf("cluster 0x%04X defined twice (%s, %s)", c.ID, prev, c.Name)
		}
		seen[c.ID] = c.Name
		if c.Name == "" {
			t.Errorf("cluster 0x%04X has no name", c.ID)
		}
		if c.IsManufacturerSpecific() {
			t.Errorf("cluster 0x%04X is manufacturer specific", c.ID)
		}
	}
}

func TestPowerConfigurationBatteryVoltage(t *testing.T) {
	a := PowerConfiguration.FindAttribute(0x0020)
	if a == nil {
		t.Fatal("BatteryVoltage missing")
	}
	if !a.IsReportable() {
		t.Error("BatteryVoltage not reportable")
	}
}
