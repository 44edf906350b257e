package physics

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

func zapName(name string) zap.Field { return zap.String("body", name) }

func zapKind(k Kind) zap.Field { return zap.Stringer("kind", k) }

func zapVec(key string, v cp.Vector) zap.Field {
	return zap.Float64s(key, []float64{v.X, v.Y})
}
