package collector

const (
	// InstanceLabel is the label carried by every sample identifying the
	// tor instance it came from.
	//
	InstanceLabel = "tor_instance"
)

// Sample is a single value of a family for a given key (country, ip version
// or transport) of a given tor instance.
//
type Sample struct {
	Key      string
	Instance string
	Value    float64
}

// Family groups the samples of one metric.
//
type Family struct {
	Name string
	Help string

	// Label is the name of the label that `Sample.Key` is exposed
	// under.
	//
	Label string

	Samples []Sample
}

// Families holds the three families that a collection produces, always in
// the same order: countries, ip versions, transports.
//
type Families struct {
	Countries  *Family
	IPVersions *Family
	Transports *Family
}

// InstanceStats ties the lines parsed from a statistics file to the source
// they were read from.
//
type InstanceStats struct {
	Source Source
	Lines  []StatLine
}

// NewFamilies instantiates the three families without any samples.
//
func NewFamilies() Families {
	return Families{
		Countries: &Family{
			Name:  "tor_bridge_stats_countries",
			Help:  "number of connected users per country",
			Label: "country",
		},
		IPVersions: &Family{
			Name:  "tor_bridge_stats_ip_version",
			Help:  "number of connections per ip version",
			Label: "ip_version",
		},
		Transports: &Family{
			Name:  "tor_bridge_stats_transports",
			Help:  "number of connections per transport method",
			Label: "transport",
		},
	}
}

// List returns the families in their fixed order.
//
func (f Families) List() []*Family {
	return []*Family{f.Countries, f.IPVersions, f.Transports}
}

// ForCategory gives back the family that entries of a given category end
// up in, or nil for unrecognized ones.
//
func (f Families) ForCategory(category Category) *Family {
	switch category {
	case CategoryIPCounts:
		return f.Countries
	case CategoryIPVersionCounts:
		return f.IPVersions
	case CategoryTransportCounts:
		return f.Transports
	default:
		return nil
	}
}

// Assemble turns every entry of every line into a sample of the family
// matching the line's category.
//
// Repeated keys are not merged: two `us=5` entries for the same instance
// produce two samples.
//
func Assemble(stats []InstanceStats) Families {
	families := NewFamilies()

	for _, instance := range stats {
		for _, line := range instance.Lines {
			family := families.ForCategory(line.Category)
			if family == nil {
				continue
			}

			for _, entry := range line.Entries {
				family.Samples = append(family.Samples, Sample{
					Key:      entry.Key,
					Instance: instance.Source.Name,
					Value:    entry.Count,
				})
			}
		}
	}

	return families
}
