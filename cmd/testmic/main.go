// Проверка микрофона перед классификацией
// Запуск: go run ./cmd/testmic -seconds 5 -device "USB"
// Остановка: Ctrl+C

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"voicemood/ai"
	"voicemood/audio"
	"voicemood/media"
)

func main() {
	seconds := flag.Float64("seconds", 5, "длительность записи")
	device := flag.String("device", "", "устройство захвата (подстрока имени)")
	output := flag.String("out", "test_mic.wav", "выходной WAV файл")
	list := flag.Bool("list", false, "показать устройства и выйти")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	recorder, err := audio.NewRecorder(ai.SampleRate)
	if err != nil {
		log.Fatalf("Ошибка инициализации захвата: %v", err)
	}
	defer recorder.Close()

	if *list {
		devices, err := recorder.ListDevices()
		if err != nil {
			log.Fatalf("Ошибка получения устройств: %v", err)
		}
		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, d.Name)
		}
		return
	}

	if err := recorder.SetDevice(*device); err != nil {
		log.Fatalf("Ошибка выбора устройства: %v", err)
	}

	// Индикатор уровня в одну строку
	recorder.OnLevel = func(level float64) {
		bars := int(level * 200)
		if bars > 40 {
			bars = 40
		}
		fmt.Fprintf(os.Stderr, "\r[%-40s] %.4f", strings.Repeat("#", bars), level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Запись %.1f сек в %s (Ctrl+C для остановки)", *seconds, *output)
	wave, err := recorder.Record(ctx, time.Duration(*seconds*float64(time.Second)))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("Ошибка записи: %v", err)
	}

	if err := media.WriteWAV(*output, wave); err != nil {
		log.Fatalf("Ошибка сохранения: %v", err)
	}

	peak := wave.Peak()
	log.WithFields(log.Fields{
		"duration": wave.Duration().Round(time.Millisecond),
		"samples":  wave.Len(),
		"peak":     fmt.Sprintf("%.5f", peak),
	}).Info("Готово")

	switch {
	case wave.Len() < ai.MinSamples:
		log.Warn("Запись короче одного окна FFT, признаки будут нулевыми")
	case peak < ai.SilenceThreshold:
		log.Warn("Сигнал ниже порога тишины, признаки будут нулевыми. Проверьте устройство.")
	}
}
