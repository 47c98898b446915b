package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ftlsim/flash/ftl"
)

type compDevice struct {
	*ftl.Comp
}

func (d compDevice) Inspect(f func(root any)) {
	f(d.Comp)
}

func get(h http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		h      http.Handler
		device *ftl.Comp
	)

	BeforeEach(func() {
		m = NewMonitor()
		device = ftl.New(3, 100)
		for i := 0; i < 100; i++ {
			Expect(device.Write(i%10, uint32(i))).To(Succeed())
		}

		m.RegisterDevice(compDevice{device})
		m.RegisterDevice(compDevice{ftl.NewWearLeveling(4, 50)})
		h = m.Handler()
	})

	It("should not register two devices with the same name", func() {
		Expect(func() {
			m.RegisterDevice(compDevice{ftl.New(1, 1)})
		}).To(Panic())
	})

	It("should list devices", func() {
		rec := get(h, "/api/devices")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var statuses []ftl.Status
		Expect(json.Unmarshal(rec.Body.Bytes(), &statuses)).To(Succeed())
		Expect(statuses).To(HaveLen(2))
		Expect(statuses[0].Name).To(Equal("SSD"))
		Expect(statuses[0].UserWrites).To(Equal(uint64(100)))
		Expect(statuses[1].Name).To(Equal("WearLevelingSSD"))
		Expect(statuses[1].VictimFinder).To(Equal(ftl.VictimFinderWearAware))
	})

	It("should show a device", func() {
		rec := get(h, "/api/device/SSD")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

		var status ftl.Status
		Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
		Expect(status).To(Equal(device.Stats()))
	})

	It("should show the blocks of a device", func() {
		rec := get(h, "/api/device/SSD/blocks")

		var blocks []ftl.BlockInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &blocks)).To(Succeed())
		Expect(blocks).To(Equal(device.BlockInfos()))
	})

	It("should show the mapping of a device", func() {
		rec := get(h, "/api/device/SSD/mapping")

		var entries []ftl.MappingEntry
		Expect(json.Unmarshal(rec.Body.Bytes(), &entries)).To(Succeed())
		Expect(entries).To(HaveLen(10))
		Expect(entries).To(Equal(device.Mapping()))
	})

	It("should serialize a field of a device", func() {
		rec := get(h, "/api/device/SSD/field/mapping")

		Expect(rec.Code).NotTo(Equal(http.StatusNotFound))
	})

	It("should return 404 for unknown devices", func() {
		for _, url := range []string{
			"/api/device/HDD",
			"/api/device/HDD/blocks",
			"/api/device/HDD/mapping",
			"/api/device/HDD/field/blocks",
		} {
			rec := get(h, url)

			Expect(rec.Code).To(Equal(http.StatusNotFound), url)
			Expect(rec.Body.String()).To(Equal("Device not found"))
		}
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("run", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)
		bar.IncrementFinished(2)

		other := m.CreateProgressBar("compare", 5)

		rec := get(h, "/api/progress")

		var bars []progressBarSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(2))
		Expect(bars[0].ID).To(Equal("bar-1"))
		Expect(bars[0].Name).To(Equal("run"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(5)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))
		Expect(bars[1].ID).To(Equal("bar-2"))

		m.CompleteProgressBar(bar)
		m.CompleteProgressBar(other)

		rec = get(h, "/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report resources", func() {
		rec := get(h, "/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		rec := get(h, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve over TCP", func() {
		port := m.WithPortNumber(0).StartServer()
		defer m.StopServer()

		Expect(port).To(BeNumerically(">", 0))

		rsp, err := http.Get("http://localhost:" +
			strconv.Itoa(port) + "/api/devices")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"name":"SSD"`))
	})
})
