package backup

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/ironlog/internal/telemetry/metrics"
	"github.com/2beens/ironlog/pkg"

	log "github.com/sirupsen/logrus"
)

// UnixSocketListenerSetup - the backup cmd runs out of process, so it reports its stats
// to the main service through this unix socket instead of pulling in the Prometheus
// push gateway just for two numbers
func UnixSocketListenerSetup(
	ctx context.Context,
	socketAddrDir, socketFileName string,
	instr *metrics.Manager,
) (net.Addr, error) {
	socket := filepath.Join(socketAddrDir, socketFileName)
	listener, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("binding to unix socket %s: %w", socket, err)
	}

	if err := os.Chmod(socket, os.ModeSocket|0666); err != nil {
		return nil, err
	}

	go func() {
		go func() {
			<-ctx.Done()
			log.Debugln("gym log backup unix socket listener context done, closing listener")
			_ = listener.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			default:
				// Otherwise, continue accepting new connections.
			}

			conn, err := listener.Accept()
			if err != nil {
				log.Errorf("gym log backup unix socket listener conn accept: %s", err)
				return
			}
			log.Debugf("gym log backup unix socket got new conn: %s", conn.RemoteAddr().String())

			// if it takes over 5 minutes to transfer the backup stats, then something is probably not right
			if err := conn.SetDeadline(time.Now().Add(5 * time.Minute)); err != nil {
				log.Errorf("failed to set conn timeout: %s", err)
				return
			}

			go func() {
				defer func() { _ = conn.Close() }()

				buf := make([]byte, 1024)
				n, err := conn.Read(buf)
				if err != nil {
					return
				}

				messageReceived := pkg.BytesToString(buf[:n])
				log.Infof("gym log backup unix socket received: %s", messageReceived)

				msgParts := strings.Split(messageReceived, "||")
				if len(msgParts) != 2 {
					log.Errorf("gym log backup conn, invalid message received: %s", messageReceived)
					return
				}

				durationInfo := msgParts[1]
				sendBackupDurationInfo(durationInfo, instr)

				recordsCountInfo := msgParts[0]
				sendBackupRecordsCount(recordsCountInfo, instr)

				_, err = conn.Write([]byte("ok"))
				if err != nil {
					log.Errorf("gym log backup conn, send response: %s", err)
				}
			}()
		}
	}()

	return listener.Addr(), nil
}

func sendBackupDurationInfo(durationInfoMsg string, metrics *metrics.Manager) {
	durationInfoParts := strings.Split(durationInfoMsg, "::")
	if len(durationInfoParts) != 2 {
		log.Errorf("gym log backup conn, invalid duration info received: %s", durationInfoMsg)
		return
	}

	durationInSec, err := strconv.ParseFloat(durationInfoParts[1], 64)
	if err != nil {
		log.Errorf("gym log backup conn, invalid duration info received: %s", err)
		return
	}

	metrics.HistBackupDuration.Observe(durationInSec)
}

func sendBackupRecordsCount(recordsCountInfoMsg string, metrics *metrics.Manager) {
	recordsCountInfoParts := strings.Split(recordsCountInfoMsg, "::")
	if len(recordsCountInfoParts) != 2 {
		log.Errorf("gym log backup conn, invalid records info received: %s", recordsCountInfoMsg)
		return
	}

	recordsCount, err := strconv.Atoi(recordsCountInfoParts[1])
	if err != nil {
		log.Errorf("gym log backup conn, invalid records counter: %s", err)
		return
	}

	metrics.CounterBackups.Add(float64(recordsCount))
}
