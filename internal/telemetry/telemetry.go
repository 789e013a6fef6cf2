package telemetry

import "github.com/google/wire"

// ProviderSet Provider对象集合
var ProviderSet = wire.NewSet(NewTrace, NewMetric)
