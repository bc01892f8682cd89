package labeldesk

import "github.com/kailas-cloud/labeldesk/internal/domain/label"

// Label is the class assigned to an account.
type Label = label.Label

// Label values, matching the integer codes in the store.
const (
	Unlabeled = label.Unlabeled
	Human     = label.Human
	Bot       = label.Bot
)

// Account is one clustered account.
type Account struct {
	ID        int64
	ClusterID int64
	Label     Label
	Embedding []float32
}

// Cluster holds the ids and embeddings of one cluster in matching order.
type Cluster struct {
	ID         int64
	AccountIDs []int64
	Embeddings [][]float32
}

// Point is one projected account.
type Point struct {
	AccountID int64
	X, Y      float64
}

// Projection is the 2D layout of a cluster plus its Vega-Lite chart.
type Projection struct {
	Points []Point
	Spec   []byte
}

// Annotation assigns a label to an account within a cluster.
type Annotation struct {
	AccountID int64
	ClusterID int64
	Label     Label
}
