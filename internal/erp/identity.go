package erp

// Identity resolution against a legacy recordset whose business key is
// (parent prefix, sequence number) and which additionally carries an opaque
// stable id column. Local entities may know either, both, or neither; the
// resolver finds the legacy record by the strongest key available and
// recovers the other components, so drifted mappings self-heal.
//
// The resolver is stateless per call. Persisting recovered or allocated ids
// back onto the local entity is the caller's responsibility and must happen
// immediately, so later steps in the same reconciliation pass see the
// updated mapping.

// StableIDField is the opaque stable-id column shared by the address and
// contact recordsets.
const StableIDField = "ID"

// CandidateKeys carries whatever identity a local entity has persisted.
type CandidateKeys struct {
	// StableID is the opaque legacy id, 0 when unknown.
	StableID int
	// Sequence is the legacy sequence number under Parent, 0 when unknown.
	Sequence int
}

// Resolution is the outcome of a lookup.
type Resolution struct {
	Found    bool
	StableID int
	Sequence int
}

// IdentityResolver resolves local entities to records of one recordset.
type IdentityResolver struct {
	ds *Dataset
	// seqField is the sequence column of the recordset (AnsNr, AspNr).
	seqField string
}

// NewIdentityResolver creates a resolver over the given dataset cursor.
func NewIdentityResolver(ds *Dataset, seqField string) *IdentityResolver {
	return &IdentityResolver{ds: ds, seqField: seqField}
}

// Resolve positions the cursor on the legacy record for the given keys,
// preferring the stable id, then the (parent, sequence) business key. When
// found, the returned Resolution carries both recovered components.
func (r *IdentityResolver) Resolve(parent Key, keys CandidateKeys) Resolution {
	if keys.StableID != 0 && r.ds.Locate(K(keys.StableID), StableIDField) {
		res := Resolution{
			Found:    true,
			StableID: r.ds.GetInt(StableIDField),
			Sequence: r.ds.GetInt(r.seqField),
		}
		if res.StableID == 0 {
			res.StableID = keys.StableID
		}
		return res
	}

	if keys.Sequence != 0 && r.ds.Locate(append(append(Key{}, parent...), keys.Sequence)) {
		res := Resolution{
			Found:    true,
			StableID: r.ds.GetInt(StableIDField),
			Sequence: r.ds.GetInt(r.seqField),
		}
		if res.Sequence == 0 {
			res.Sequence = keys.Sequence
		}
		return res
	}

	return Resolution{StableID: keys.StableID, Sequence: keys.Sequence}
}

// AllocateSequence picks the next free sequence number under parent by
// ranging over the existing children and taking max(1, highest+1). Values
// in the reserved set are in flight elsewhere in the same reconciliation
// pass and are skipped.
func (r *IdentityResolver) AllocateSequence(parent Key, reserved map[int]bool) int {
	highest := 0
	from := append(append(Key{}, parent...), 0)
	to := append(append(Key{}, parent...), 999)
	if r.ds.BeginRange(from, to) {
		r.ds.PositionLast()
		highest = r.ds.GetInt(r.seqField)
	}

	candidate := highest + 1
	if candidate < 1 {
		candidate = 1
	}
	for reserved[candidate] {
		candidate++
	}
	return candidate
}
