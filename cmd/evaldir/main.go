// Прогон классификатора по каталогу с размеченными записями.
// Метка берётся из имени родительского каталога (dataset/happy/001.wav).
//
// Запуск: go run ./cmd/evaldir -models models -dir dataset

package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"voicemood/ai"
	"voicemood/media"
)

var audioExts = map[string]bool{
	".wav": true, ".mp3": true, ".webm": true, ".ogg": true,
	".m4a": true, ".flac": true, ".aac": true,
}

type stats struct {
	total    int
	correct  int
	fallback int
}

func main() {
	modelsDir := flag.String("models", "models", "каталог с model.onnx, scaler.json, encoder.json")
	dir := flag.String("dir", "", "каталог с записями")
	ort := flag.String("onnxruntime", "", "путь к libonnxruntime")
	keep := flag.Bool("keep", false, "не удалять нормализованные WAV")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	classifier, err := ai.LoadContext(ai.Artifacts{
		ModelPath:   filepath.Join(*modelsDir, "model.onnx"),
		ScalerPath:  filepath.Join(*modelsDir, "scaler.json"),
		EncoderPath: filepath.Join(*modelsDir, "encoder.json"),
		ONNXLibrary: *ort,
	})
	if err != nil {
		log.Fatalf("Ошибка загрузки модели: %v", err)
	}
	defer classifier.Close()

	known := make(map[string]bool)
	for _, l := range classifier.Labels() {
		known[strings.ToLower(l)] = true
	}

	var files []string
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && audioExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Ошибка обхода каталога: %v", err)
	}
	sort.Strings(files)

	// Пропускаем WAV, полученные нормализацией соседнего файла
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f] = true
	}

	perLabel := make(map[string]*stats)
	start := time.Now()
	for _, path := range files {
		if media.IsCanonical(path) {
			base := strings.TrimSuffix(path, filepath.Ext(path))
			if isNormalizedCopy(base, seen) {
				continue
			}
		}

		truth := strings.ToLower(filepath.Base(filepath.Dir(path)))
		if !known[truth] {
			truth = "?"
		}

		res, err := classifier.Classify(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("Ошибка классификации")
			continue
		}
		if !*keep && res.NormalizedPath != path {
			os.Remove(res.NormalizedPath)
		}

		s := perLabel[truth]
		if s == nil {
			s = &stats{}
			perLabel[truth] = s
		}
		s.total++
		if res.Label == truth {
			s.correct++
		}
		if res.Extraction != ai.ExtractionOK {
			s.fallback++
		}
		log.WithFields(log.Fields{"file": path, "truth": truth, "label": res.Label}).Debug("classified")
	}

	labels := make([]string, 0, len(perLabel))
	for l := range perLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tFILES\tCORRECT\tACCURACY\tFALLBACK")
	var all stats
	for _, l := range labels {
		s := perLabel[l]
		all.total += s.total
		all.correct += s.correct
		all.fallback += s.fallback
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%d\n", l, s.total, s.correct, accuracy(s), s.fallback)
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t%s\t%d\n", all.total, all.correct, accuracy(&all), all.fallback)
	tw.Flush()

	log.Infof("Обработано %d файлов за %s", all.total, time.Since(start).Round(time.Millisecond))
}

func isNormalizedCopy(base string, seen map[string]bool) bool {
	for ext := range audioExts {
		if ext != ".wav" && seen[base+ext] {
			return true
		}
	}
	return false
}

func accuracy(s *stats) string {
	if s.total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(s.correct)/float64(s.total))
}
