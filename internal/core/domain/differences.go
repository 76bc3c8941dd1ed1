package domain

// RecordChangeSet is an additive update for one existing record.
// It never removes or overwrites a populated value.
type RecordChangeSet struct {
	// Record is the existing record the changes apply to.
	Record Record

	// SingleValueChanges maps empty fields to their new values.
	SingleValueChanges map[SingleField]string

	// MultiValueChanges maps fields to entries missing from the record.
	MultiValueChanges map[MultiField][]LabeledValue

	// ImageChange is the photo to set, nil when none.
	ImageChange []byte
}

// IsEmpty reports whether the change set would change nothing.
func (c RecordChangeSet) IsEmpty() bool {
	return len(c.SingleValueChanges) == 0 && len(c.MultiValueChanges) == 0 && len(c.ImageChange) == 0
}

// Apply merges the change set into r.
func (c RecordChangeSet) Apply(r *Record) error {
	for _, f := range SingleFields {
		if v, ok := c.SingleValueChanges[f]; ok {
			if err := r.SetValue(f, v); err != nil {
				return err
			}
		}
	}
	for _, f := range MultiFields {
		if vs, ok := c.MultiValueChanges[f]; ok {
			if err := r.AddValues(f, vs); err != nil {
				return err
			}
		}
	}
	if len(c.ImageChange) > 0 {
		return r.SetImage(c.ImageChange)
	}
	return nil
}

// RecordDifferences is the outcome of reconciling two record sets.
type RecordDifferences struct {
	// Additions are new records with no counterpart in the old set.
	Additions []Record

	// Changes are additive updates to matched old records.
	Changes []RecordChangeSet
}

// IsEmpty reports whether there is nothing to apply.
func (d RecordDifferences) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Changes) == 0
}

// Counts summarises the differences.
func (d RecordDifferences) Counts() Changes {
	return Changes{Additions: len(d.Additions), Updates: len(d.Changes)}
}

type identity struct {
	kind Kind
	key  string
}

type recordIndex struct {
	positions map[identity]int
	ambiguous map[identity]bool
}

func indexRecords(records []Record) recordIndex {
	idx := recordIndex{
		positions: make(map[identity]int, len(records)),
		ambiguous: make(map[identity]bool),
	}
	for i, r := range records {
		key, ok := r.IdentityKey()
		if !ok {
			continue
		}
		id := identity{kind: r.Kind, key: key}
		if _, seen := idx.positions[id]; seen {
			idx.ambiguous[id] = true
			continue
		}
		idx.positions[id] = i
	}
	return idx
}

// lookup returns the position of the single record with id.
func (idx recordIndex) lookup(id identity) (int, bool) {
	if idx.ambiguous[id] {
		return 0, false
	}
	i, ok := idx.positions[id]
	return i, ok
}

// ResolveBetween computes the additions and change sets that bring
// oldRecords up to date with newRecords.
//
// Records are matched by identity key within their kind. Keys shared by
// more than one record on either side are skipped entirely. Records
// without identity are ignored. Changes only fill empty single-value
// fields, add missing multi-value entries and set a missing image.
// Output follows the order of newRecords.
func ResolveBetween(oldRecords, newRecords []Record) RecordDifferences {
	oldIdx := indexRecords(oldRecords)
	newIdx := indexRecords(newRecords)

	var diff RecordDifferences
	for i, newRecord := range newRecords {
		key, ok := newRecord.IdentityKey()
		if !ok {
			continue
		}
		id := identity{kind: newRecord.Kind, key: key}
		if pos, unique := newIdx.lookup(id); !unique || pos != i {
			continue
		}
		if oldIdx.ambiguous[id] {
			continue
		}
		oldPos, found := oldIdx.lookup(id)
		if !found {
			diff.Additions = append(diff.Additions, newRecord)
			continue
		}
		if cs := changeSetBetween(oldRecords[oldPos], newRecord); !cs.IsEmpty() {
			diff.Changes = append(diff.Changes, cs)
		}
	}
	return diff
}

func changeSetBetween(oldRecord, newRecord Record) RecordChangeSet {
	cs := RecordChangeSet{Record: oldRecord}

	for _, f := range SingleFields {
		newValue := newRecord.Value(f)
		if newValue != "" && oldRecord.Value(f) == "" {
			if cs.SingleValueChanges == nil {
				cs.SingleValueChanges = make(map[SingleField]string)
			}
			cs.SingleValueChanges[f] = newValue
		}
	}

	for _, f := range MultiFields {
		if missing := missingValues(oldRecord.Values(f), newRecord.Values(f)); len(missing) > 0 {
			if cs.MultiValueChanges == nil {
				cs.MultiValueChanges = make(map[MultiField][]LabeledValue)
			}
			cs.MultiValueChanges[f] = missing
		}
	}

	if !oldRecord.HasImage() && newRecord.HasImage() {
		cs.ImageChange = newRecord.ImageData()
	}
	return cs
}

// missingValues returns the entries of newValues absent from oldValues,
// compared by label and value, in newValues order and without repeats.
func missingValues(oldValues, newValues []LabeledValue) []LabeledValue {
	if len(newValues) == 0 {
		return nil
	}
	present := make(map[LabeledValue]bool, len(oldValues)+len(newValues))
	for _, v := range oldValues {
		present[v] = true
	}
	var missing []LabeledValue
	for _, v := range newValues {
		if v.Value == "" || present[v] {
			continue
		}
		present[v] = true
		missing = append(missing, v)
	}
	return missing
}
