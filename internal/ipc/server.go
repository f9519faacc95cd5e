package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"serialscan/internal/daemon"
	"serialscan/internal/logging"
	"serialscan/internal/sessions"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Serialscan", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func convertSession(session *sessions.Session) Session {
	dto := Session{
		ID:         session.ID,
		Status:     string(session.Status),
		Serial:     session.Serial,
		Confidence: session.Confidence,
		Frames:     session.Frames,
		Guidance:   session.Guidance,
		StartedAt:  session.StartedAt.Format(time.RFC3339Nano),
	}
	if session.FinishedAt != nil {
		dto.FinishedAt = session.FinishedAt.Format(time.RFC3339Nano)
	}
	return dto
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockPath = status.LockFilePath
	resp.SessionsDBPath = status.SessionsDBPath
	resp.CameraDevice = status.CameraDevice
	resp.CameraPresent = status.CameraPresent
	resp.Scan = ScanStatus{
		Active:     status.Scan.Active,
		SessionID:  status.Scan.SessionID,
		Serial:     status.Scan.Serial,
		Confidence: status.Scan.Confidence,
		Frames:     status.Scan.Frames,
		Locked:     status.Scan.Locked,
	}
	resp.Sessions = HealthCounts{
		Total:     status.Sessions.Total,
		Active:    status.Sessions.Active,
		Locked:    status.Sessions.Locked,
		Abandoned: status.Sessions.Abandoned,
	}
	resp.Checks = make([]CheckResult, 0, len(status.Checks))
	for _, check := range status.Checks {
		resp.Checks = append(resp.Checks, CheckResult{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		})
	}
	return nil
}

func (s *service) ScanStart(_ ScanStartRequest, resp *ScanStartResponse) error {
	id, err := s.daemon.StartScan(s.ctx)
	if err != nil {
		return err
	}
	resp.SessionID = id
	return nil
}

func (s *service) ScanStop(_ ScanStopRequest, resp *ScanStopResponse) error {
	if err := s.daemon.StopScan(s.ctx); err != nil {
		if errors.Is(err, daemon.ErrNoActiveScan) {
			resp.Stopped = false
			return nil
		}
		return err
	}
	resp.Stopped = true
	return nil
}

func (s *service) TrackFrame(req TrackFrameRequest, resp *TrackFrameResponse) error {
	result, err := s.daemon.TrackFrame(s.ctx, req.Frame)
	if err != nil {
		return err
	}
	resp.Busy = result.Busy
	resp.SessionID = result.SessionID
	resp.FrameIndex = result.FrameIndex
	resp.Valid = result.Valid
	resp.Rejected = result.Rejected
	resp.State = string(result.Stability.State)
	resp.StableText = result.Stability.StableText
	resp.Guidance = result.Stability.Guidance
	resp.ShouldLock = result.Stability.ShouldLock
	resp.Confidence = result.Stability.Confidence
	return nil
}

func (s *service) ForceUnlock(_ ForceUnlockRequest, resp *ForceUnlockResponse) error {
	if err := s.daemon.ForceUnlock(); err != nil {
		return err
	}
	resp.Unlocked = true
	return nil
}

func (s *service) SessionsList(req SessionsListRequest, resp *SessionsListResponse) error {
	statuses := make([]sessions.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := sessions.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	list, err := s.daemon.ListSessions(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Sessions = make([]Session, 0, len(list))
	for _, session := range list {
		if session == nil {
			continue
		}
		resp.Sessions = append(resp.Sessions, convertSession(session))
	}
	return nil
}

func (s *service) LastLocked(_ LastLockedRequest, resp *LastLockedResponse) error {
	session, err := s.daemon.LastLocked(s.ctx)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			resp.Found = false
			return nil
		}
		return err
	}
	resp.Found = true
	resp.Session = convertSession(session)
	return nil
}

func (s *service) SessionsClear(req SessionsClearRequest, resp *SessionsClearResponse) error {
	var (
		removed int64
		err     error
	)
	if req.AbandonedOnly {
		removed, err = s.daemon.ClearAbandoned(s.ctx)
	} else {
		removed, err = s.daemon.ClearSessions(s.ctx)
	}
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("sessions cleared",
		logging.String(logging.FieldEventType, "sessions_clear"),
		logging.Int64("removed_count", removed),
		logging.Bool("abandoned_only", req.AbandonedOnly))
	return nil
}

func (s *service) SessionsHealth(_ SessionsHealthRequest, resp *SessionsHealthResponse) error {
	health, err := s.daemon.SessionsHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Active = health.Active
	resp.Locked = health.Locked
	resp.Abandoned = health.Abandoned
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalSessions = health.TotalSessions
	resp.Error = health.Error
	return err
}
