package simpleab

import "hash/fnv"

// bucketCount is the size of the bucket space; buckets are in [0, bucketCount).
const bucketCount = 100

// Bucket maps token+userID to a stable position in [0, 100).
//
// The hash is 32-bit FNV-1a over the concatenated bytes, reduced modulo 100.
// Every SDK port must use the same function to produce identical assignments.
func Bucket(token, userID string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	h.Write([]byte(userID))
	return int(h.Sum32() % bucketCount)
}

// Resolve deterministically computes the treatment of userID.
//
// It never fails: a missing stage or dimension, a disabled dimension, exposure
// exclusion and an allocation remainder all yield TreatmentNone. Stage values are
// validated by the caller before resolution.
func Resolve(def *ExperimentDefinition, stage Stage, dimension, userID string) Treatment {
	if def == nil {
		return TreatmentNone
	}

	stageCfg, ok := def.Stage(stage)
	if !ok {
		return TreatmentNone
	}

	dim, ok := stageCfg.Dimension(dimension)
	if !ok || !dim.Enabled {
		return TreatmentNone
	}

	if float64(Bucket(def.ExposureRandomizationToken, userID)) >= dim.ExposurePercent() {
		return TreatmentNone
	}

	return allocate(dim.TreatmentAllocations, Bucket(def.AllocationRandomizationToken, userID))
}

// allocate walks allocations in declared order and returns the first one whose
// cumulative upper bound exceeds bucket.
func allocate(allocations []Allocation, bucket int) Treatment {
	var upper float64
	for _, a := range allocations {
		upper += a.Allocation
		if float64(bucket) < upper {
			return a.ID
		}
	}
	return TreatmentNone
}
