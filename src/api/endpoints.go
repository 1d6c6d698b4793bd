package api

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lost-woods/randtest/src/bitstream"
	"github.com/lost-woods/randtest/src/measure"
	"github.com/lost-woods/randtest/src/walk"
)

const (
	maxBins = 10_000

	// maxEvaluateBits caps n*reps for a single evaluation request.
	maxEvaluateBits = 1 << 32
)

func parseBins(c *gin.Context) (int, bool) {
	bins, err := strconv.Atoi(c.DefaultQuery("bins", "12"))
	if err != nil || bins < 2 || bins > maxBins {
		responder{c}.err(http.StatusBadRequest,
			fmt.Sprintf("Bins must be an integer between 2 and %d.", maxBins))
		return 0, false
	}
	return bins, true
}

func formatBound(x float64) string {
	switch {
	case math.IsInf(x, -1):
		return "-inf"
	case math.IsInf(x, 1):
		return "+inf"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func formatInterval(iv measure.Interval) string {
	if math.IsInf(iv.Low, -1) {
		return "(-inf, " + formatBound(iv.High) + ")"
	}
	return "[" + formatBound(iv.Low) + ", " + formatBound(iv.High) + ")"
}

func (h *Handlers) Partition(c *gin.Context) {
	kind := strings.ToLower(c.DefaultQuery("kind", "asin"))
	bins, ok := parseBins(c)
	if !ok {
		return
	}

	var start, finish float64
	if kind == "custom" {
		var err error
		if start, err = strconv.ParseFloat(c.Query("start"), 64); err != nil {
			responder{c}.err(http.StatusBadRequest, "Invalid start value.")
			return
		}
		if finish, err = strconv.ParseFloat(c.Query("finish"), 64); err != nil {
			responder{c}.err(http.StatusBadRequest, "Invalid finish value.")
			return
		}
	}

	h.handle(c, func() (string, gin.H, int, string) {
		var (
			p   measure.Partition
			err error
		)
		switch kind {
		case "asin":
			p, err = measure.AsinPartition(bins)
		case "lil":
			p, err = measure.LILPartition(bins)
		case "custom":
			p, err = measure.MakePartition(bins, start, finish)
		default:
			return "", nil, http.StatusBadRequest, "Kind must be one of asin, lil or custom."
		}
		if err != nil {
			return "", nil, statusFor(err), err.Error()
		}

		lines := make([]string, 0, p.Len())
		for _, iv := range p.Intervals() {
			lines = append(lines, formatInterval(iv))
		}
		return strings.Join(lines, "\n"), gin.H{
			"kind":      kind,
			"bins":      bins,
			"partition": p,
		}, 0, ""
	})
}

func (h *Handlers) Ideal(c *gin.Context) {
	law := strings.ToLower(c.Param("law"))
	bins, ok := parseBins(c)
	if !ok {
		return
	}

	n, err := strconv.Atoi(c.DefaultQuery("n", "1000000"))
	if err != nil {
		responder{c}.err(http.StatusBadRequest, "Invalid sequence length.")
		return
	}

	h.handle(c, func() (string, gin.H, int, string) {
		stat, err := walk.ParseStatistic(law)
		if err != nil {
			return "", nil, http.StatusNotFound, "Law must be asin or lil."
		}
		p, err := stat.Partition(bins)
		if err != nil {
			return "", nil, statusFor(err), err.Error()
		}
		m, err := stat.Ideal(n, p)
		if err != nil {
			return "", nil, statusFor(err), err.Error()
		}

		return measureText(m), gin.H{
			"law":     stat.Name(),
			"n":       n,
			"measure": m,
		}, 0, ""
	})
}

func measureText(m measure.Measure) string {
	var out strings.Builder
	p := m.Partition()
	for i := 0; i < m.Len(); i++ {
		if i > 0 {
			out.WriteByte('\n')
		}
		fmt.Fprintf(&out, "%s\t%.12g", formatInterval(p.Interval(i)), m.Value(i))
	}
	return out.String()
}

type distanceRequest struct {
	Metric string          `json:"metric"`
	U      measure.Measure `json:"u"`
	V      measure.Measure `json:"v"`
}

// Distance compares two measures with one metric, or with all of them when
// no metric is named.
func (h *Handlers) Distance(c *gin.Context) {
	var req distanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responder{c}.err(http.StatusBadRequest, "Invalid measures: "+err.Error())
		return
	}

	names := measure.MetricNames()
	if req.Metric != "" {
		if _, err := measure.ParseMetric(req.Metric); err != nil {
			responder{c}.err(http.StatusBadRequest, err.Error())
			return
		}
		names = []string{strings.ToLower(strings.TrimSpace(req.Metric))}
	}

	h.handle(c, func() (string, gin.H, int, string) {
		distances := make(map[string]float64, len(names))
		for _, name := range names {
			metric, _ := measure.ParseMetric(name)
			d, err := metric(req.U, req.V)
			if err != nil {
				return "", nil, statusFor(err), err.Error()
			}
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return "", nil, http.StatusUnprocessableEntity,
					fmt.Sprintf("Distance %s is undefined for these measures.", name)
			}
			distances[name] = d
		}
		return distancesText(distances), gin.H{"distances": distances}, 0, ""
	})
}

func distancesText(distances map[string]float64) string {
	names := make([]string, 0, len(distances))
	for name := range distances {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%s: %.12g", name, distances[name])
	}
	return strings.Join(lines, "\n")
}

type evaluateRequest struct {
	File      string `json:"file" binding:"required"`
	Statistic string `json:"statistic"`
	N         int    `json:"n"`
	Reps      int    `json:"reps"`
	Bins      int    `json:"bins"`
}

func (h *Handlers) Evaluate(c *gin.Context) {
	req := evaluateRequest{Statistic: "asin", N: 1_000_000, Reps: 100, Bins: 12}
	if err := c.ShouldBindJSON(&req); err != nil {
		responder{c}.err(http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.N <= 0 || req.Reps <= 0 || int64(req.N)*int64(req.Reps) > maxEvaluateBits {
		responder{c}.err(http.StatusBadRequest,
			fmt.Sprintf("n and reps must be positive with n*reps at most %d.", int64(maxEvaluateBits)))
		return
	}
	if req.Bins < 2 || req.Bins > maxBins {
		responder{c}.err(http.StatusBadRequest,
			fmt.Sprintf("Bins must be an integer between 2 and %d.", maxBins))
		return
	}

	h.handle(c, func() (string, gin.H, int, string) {
		stat, err := walk.ParseStatistic(req.Statistic)
		if err != nil {
			return "", nil, http.StatusBadRequest, err.Error()
		}
		path, err := h.resolve(req.File)
		if err != nil {
			return "", nil, http.StatusServiceUnavailable, err.Error()
		}

		res, err := walk.Evaluate(bitstream.NewFileSource(path), walk.Config{
			Statistic: stat,
			N:         req.N,
			Reps:      req.Reps,
			Bins:      req.Bins,
		}, h.log)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				h.log.Errorw("evaluation failed", "file", req.File, "error", err)
				return "", nil, status, "Error evaluating bit source."
			}
			return "", nil, status, err.Error()
		}

		text := fmt.Sprintf("%s over %d windows of %d bits\n%s",
			res.Statistic, res.Samples, res.N, distancesText(res.Distances))
		return text, gin.H{"file": req.File, "result": res}, 0, ""
	})
}

func (h *Handlers) Health(c *gin.Context) {
	t := time.Now().UTC().Format(time.RFC3339)
	ok, msg := h.dataDirOK()
	if ok {
		responder{c}.ok(
			fmt.Sprintf("OK (checked %s)", t),
			gin.H{"ok": true, "checked": t},
			"health-check",
		)
		return
	}

	responder{c}.err(http.StatusServiceUnavailable,
		fmt.Sprintf("UNHEALTHY: %s (checked %s)", msg, t))
}
