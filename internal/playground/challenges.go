package playground

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var tableColumns = []string{"Name", "CPU", "Memory", "Network", "Disk"}

var tableProcesses = []string{"Chrome", "Firefox", "Internet Explorer", "System"}

type tableData struct {
	Columns   []string
	Rows      [][]string
	ChromeCPU string
}

// buildTable produces the process table with columns and rows in random
// order, as the real challenge page does on every load.
func buildTable(rng *rand.Rand) tableData {
	columns := append([]string(nil), tableColumns...)
	rng.Shuffle(len(columns), func(i, j int) { columns[i], columns[j] = columns[j], columns[i] })

	processes := append([]string(nil), tableProcesses...)
	rng.Shuffle(len(processes), func(i, j int) { processes[i], processes[j] = processes[j], processes[i] })

	data := tableData{Columns: columns}
	for _, name := range processes {
		values := map[string]string{
			"Name":    name,
			"CPU":     fmt.Sprintf("%.1f%%", float64(rng.IntN(100))/10+0.1),
			"Memory":  fmt.Sprintf("%.1f MB", float64(rng.IntN(1000))/10+1),
			"Network": fmt.Sprintf("%.1f Mbps", float64(rng.IntN(100))/10),
			"Disk":    fmt.Sprintf("%.1f MB/s", float64(rng.IntN(50))/10),
		}
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = values[c]
		}
		data.Rows = append(data.Rows, row)
		if name == "Chrome" {
			data.ChromeCPU = values["CPU"]
		}
	}
	return data
}

func (s *Server) dynamicTable(w http.ResponseWriter, r *http.Request) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	s.render(w, "dynamictable.html", buildTable(rng))
}

func (s *Server) progressBar(w http.ResponseWriter, r *http.Request) {
	step := s.opts.ProgressStep.Milliseconds()
	if v, err := strconv.Atoi(r.URL.Query().Get("step")); err == nil && v > 0 {
		step = int64(v)
	}
	if step <= 0 {
		step = 100
	}
	s.render(w, "progressbar.html", map[string]any{"StepMs": step})
}

func (s *Server) dynamicID(w http.ResponseWriter, r *http.Request) {
	s.render(w, "dynamicid.html", map[string]any{"ButtonID": uuid.New().String()})
}

func (s *Server) ajaxData(w http.ResponseWriter, r *http.Request) {
	if !sleep(r, s.opts.AjaxDelay) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Data loaded with AJAX get request."))
}

func (s *Server) loadDelay(w http.ResponseWriter, r *http.Request) {
	if !sleep(r, s.opts.LoadDelay) {
		return
	}
	s.render(w, "loaddelay.html", nil)
}

func (s *Server) oscars(w http.ResponseWriter, r *http.Request) {
	s.render(w, "oscars.html", s.fixtures.Years())
}

func (s *Server) oscarsData(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "year must be a number"})
		return
	}
	if !sleep(r, s.opts.AjaxDelay/3) {
		return
	}
	writeJSON(w, http.StatusOK, s.fixtures.FilmsFor(year))
}

const nightSkySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="640" height="400" viewBox="0 0 640 400">
<rect width="640" height="400" fill="#0b1026"/>
<circle cx="520" cy="90" r="40" fill="#f4f1c9"/>
<circle cx="80" cy="60" r="2" fill="#fff"/><circle cx="200" cy="140" r="1.5" fill="#fff"/>
<circle cx="320" cy="40" r="2" fill="#fff"/><circle cx="420" cy="200" r="1" fill="#fff"/>
<path d="M0 330 L160 250 L300 320 L450 230 L640 330 L640 400 L0 400 Z" fill="#1c2541"/>
</svg>
`

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name != "night-sky.svg" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="night-sky.svg"`)
	w.Write([]byte(nightSkySVG))
}
