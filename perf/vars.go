package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	DrainSize        = metric.NewHistogram("10s1s")
	PacketsSent      = metric.NewCounter("10s1s")
	PacketsReceived  = metric.NewCounter("10s1s")
	PacketsDelivered = metric.NewCounter("10s1s")
	PacketsDropped   = metric.NewCounter("10s1s")
	PacketsQueued    = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("chainsdn:DrainSize", DrainSize)

	expvar.Publish("chainsdn:SentPacket/s", PacketsSent)
	expvar.Publish("chainsdn:RecvPacket/s", PacketsReceived)
	expvar.Publish("chainsdn:Delivered/s", PacketsDelivered)
	expvar.Publish("chainsdn:Dropped/s", PacketsDropped)
	expvar.Publish("chainsdn:Queued/s", PacketsQueued)
	expvar.Publish("chainsdn:DispatchLatency (µs)", DispatchLatency)
}
