// Package domain models wildfire occurrence records for the Brazilian Legal
// Amazon and the dataset engineering that turns them into a balanced
// fire / no-fire training set.
//
// # Data Source
//
// Occurrence rows come from the per-state burned-area exports ("consolidado"
// tables), one row per detection. The columns the package interprets are:
//
//	lat, lon                  decimal degrees (WGS-84)
//	data_pas                  detection timestamp, e.g. "2023-08-14 17:25:00"
//	estado, municipio         state and municipality names (passthrough)
//	precipitacao              precipitation in mm (passthrough, optional)
//	numero_dias_sem_chuva     days without rain (passthrough, optional)
//
// Every other column is carried through untouched in [Occurrence.Extra].
//
// # Spatial Clustering
//
// Records are grouped by geographic proximity with a fixed radius, 100 km by
// default. The radius is converted to degrees by [KmToDegrees] using the planar
// approximation 1° ≈ 110.574 km. That is only reasonable close to the equator
// and over spans of a few degrees, which is the case for the Legal Amazon.
// Data far from the equator gets skewed clusters; swap ClusterOptions.ToDegrees
// for a geodesic conversion if that matters.
//
// Two assignment strategies exist (see [Strategy]):
//
//	connected    connected components of the within-radius graph (union-find).
//	             Two records share an id iff a chain of within-radius hops links them.
//	first-touch  the legacy single pass: each record that has no id yet opens a
//	             new id and stamps it on every neighbor of its radius query,
//	             overwriting ids set earlier. Chains are not followed, so a
//	             connected region can be split into several ids.
//
// Ids are dense integers handed out in input order and carry no meaning beyond
// grouping. They are recomputed on every run.
//
// # Absence Synthesis
//
// Within each cluster, records are ordered by time. Whenever two consecutive
// records are more than one day apart, one "no-fire" record is emitted per day
// starting one day after the earlier record and stopping before the later one,
// at the arithmetic midpoint of the two locations:
//
//	day 1 ---- day 5   ->   no-fire on day 2, 3, 4
//
// Gaps across cluster boundaries are never bridged and the original records
// are never modified.
package domain
