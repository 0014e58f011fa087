package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "vms")
				So(manager.subsystem, ShouldEqual, "allocation")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("coordinator"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.cacheHits.Inc()

			Convey("Then metric names and const labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "test_coordinator_capacity_cache_hits_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submittedMembers.WithLabelValues("create", "success"))
			RecordSubmission("create", "success", 3)

			Convey("Then the member counter should grow by the batch size", func() {
				after := testutil.ToFloat64(globalManager.submittedMembers.WithLabelValues("create", "success"))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When moving gauges", func() {
			AddBusyMembers(2)
			AddBusyMembers(-2)
			UpdateActiveSessions(4)

			Convey("Then they should reflect the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSessions), ShouldEqual, 4)
			})
		})

		Convey("When recording every other collector", func() {
			So(func() {
				RecordLocalRejection("locked")
				RecordSubmitLatency(12)
				AddSelectionsPending(1)
				AddTrackedMessages(1)
				RecordBackendRequest("fetch_capacity", "200", 8)
				RecordCacheHit()
				RecordCacheMiss()
				UpdateQueueSize(1)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDrop()
				RecordPublished()
				RecordPublishError()
				UpdatePublisherWorkers(1)
				RecordHTTPRequest("venues", "GET", "200")
				RecordHTTPRequestDuration("venues", "GET", "200", 3)
				RecordErrorByComponent("backend", "transport")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("submit", "POST", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordCacheHit()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then every family should use the vms namespace", func() {
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "vms_allocation_"), ShouldBeTrue)
				}
			})
		})
	})
}
