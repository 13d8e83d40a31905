// Package dispatch routes a parsed command name and argument vector to
// the matching Store operation and renders the result as a resp.Value
// reply, per the command table the wire protocol exposes.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/akashmaji946/goredisd/internal/resp"
	"github.com/akashmaji946/goredisd/internal/store"
)

// Dispatcher holds the mutable server-side collaborators a command may
// need beyond the keyspace itself: the store, the default snapshot
// path, and the process start time (for STATS uptime).
type Dispatcher struct {
	Store            *store.Store
	DefaultSnapshot  string
	startedAt        time.Time
	commandsExecuted func() // optional metrics hook, called once per dispatch
	saveFailed       func() // optional metrics hook, called once per failed SAVE
}

// New builds a Dispatcher bound to st. SAVE takes no arguments and
// always writes the snapshot to defaultSnapshotPath.
func New(st *store.Store, defaultSnapshotPath string) *Dispatcher {
	return &Dispatcher{
		Store:           st,
		DefaultSnapshot: defaultSnapshotPath,
		startedAt:       time.Now(),
	}
}

// OnCommand registers a callback invoked once per Dispatch call,
// independent of success or failure. Used to feed the commands-total
// metric without dispatch depending on the metrics package.
func (d *Dispatcher) OnCommand(f func()) {
	d.commandsExecuted = f
}

// OnSaveError registers a callback invoked once per failed SAVE command.
// Used to feed the snapshot-save-errors metric without dispatch
// depending on the metrics package.
func (d *Dispatcher) OnSaveError(f func()) {
	d.saveFailed = f
}

type handlerFunc func(d *Dispatcher, args []resp.Value) resp.Value

var handlers = map[string]handlerFunc{
	"PING":   cmdPing,
	"ECHO":   cmdEcho,
	"SET":    cmdSet,
	"GET":    cmdGet,
	"EXISTS": cmdExists,
	"DEL":    cmdDel,
	"INCR":   cmdIncr,
	"DECR":   cmdDecr,
	"LPUSH":  cmdLPush,
	"RPUSH":  cmdRPush,
	"SAVE":   cmdSave,
	"LOAD":   cmdLoad,
	"STATS":  cmdStats,
}

// Dispatch looks up name in the recognized command set and invokes it
// with args (the argument vector following the command name). Unknown
// commands produce an Error reply rather than a panic.
func (d *Dispatcher) Dispatch(name string, args []resp.Value) resp.Value {
	if d.commandsExecuted != nil {
		d.commandsExecuted()
	}

	h, ok := handlers[name]
	if !ok {
		return resp.Err("ERR unknown command")
	}
	return h(d, args)
}

// bulkText extracts a command argument's UTF-8 text. Every argument
// must be a non-null BulkString; anything else is an ArgumentError.
func bulkText(v resp.Value) (string, error) {
	if v.Type != resp.TypeBulkString || v.Bulk == nil {
		return "", fmt.Errorf("Error: Not bulk string")
	}
	if !utf8.ValidString(*v.Bulk) {
		return "", fmt.Errorf("invalid UTF-8 in argument")
	}
	return *v.Bulk, nil
}

func bulkTexts(args []resp.Value) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := bulkText(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func cmdPing(d *Dispatcher, args []resp.Value) resp.Value {
	return resp.SimpleString("PONG")
}

func cmdEcho(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'echo' command")
	}
	text, err := bulkText(args[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.SimpleString(text)
}

// setModeAbsolute turns a SET expiration mode token and its magnitude
// into an absolute unix-millis expiration, per the four modes SET
// recognizes.
func setModeAbsolute(mode string, t int64, nowMs int64) (int64, error) {
	switch strings.ToUpper(mode) {
	case "EX":
		return nowMs + t*1000, nil
	case "PX":
		return nowMs + t, nil
	case "EXAT":
		return t * 1000, nil
	case "PXAT":
		return t, nil
	default:
		return 0, fmt.Errorf("Optional argument not understood")
	}
}

func cmdSet(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 2 && len(args) != 4 {
		return resp.Err("ERR wrong number of arguments for 'set' command")
	}
	texts, err := bulkTexts(args)
	if err != nil {
		return resp.Err(err.Error())
	}

	key, val := texts[0], texts[1]
	var expireAtMs int64
	if len(texts) == 4 {
		mode := texts[2]
		t, convErr := strconv.ParseUint(texts[3], 10, 63)
		if convErr != nil {
			return resp.Err("Optional argument not understood")
		}
		abs, modeErr := setModeAbsolute(mode, int64(t), time.Now().UnixMilli())
		if modeErr != nil {
			return resp.Err(modeErr.Error())
		}
		expireAtMs = abs
	}

	d.Store.Set(key, store.ParseScalar(val), expireAtMs)
	return resp.SimpleString("OK")
}

func cmdGet(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'get' command")
	}
	key, err := bulkText(args[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	v, ok := d.Store.Get(key)
	if !ok {
		return resp.SimpleString("")
	}
	return resp.SimpleString(v.Text())
}

func cmdExists(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) < 1 {
		return resp.Err("ERR wrong number of arguments for 'exists' command")
	}
	keys, err := bulkTexts(args)
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.Integer(int64(d.Store.Exists(keys)))
}

func cmdDel(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) < 1 {
		return resp.Err("ERR wrong number of arguments for 'del' command")
	}
	keys, err := bulkTexts(args)
	if err != nil {
		return resp.Err(err.Error())
	}
	return resp.Integer(int64(d.Store.Delete(keys)))
}

func cmdIncr(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'incr' command")
	}
	key, err := bulkText(args[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	v, incErr := d.Store.Increment(key)
	if incErr != nil {
		return resp.Err(incErr.Error())
	}
	return resp.Integer(v)
}

func cmdDecr(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'decr' command")
	}
	key, err := bulkText(args[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	v, decErr := d.Store.Decrement(key)
	if decErr != nil {
		return resp.Err(decErr.Error())
	}
	return resp.Integer(v)
}

func cmdLPush(d *Dispatcher, args []resp.Value) resp.Value {
	return pushCmd(d, args, "lpush", d.Store.LPush)
}

func cmdRPush(d *Dispatcher, args []resp.Value) resp.Value {
	return pushCmd(d, args, "rpush", d.Store.RPush)
}

func pushCmd(d *Dispatcher, args []resp.Value, name string, push func(string, []store.StoredValue) (int, error)) resp.Value {
	if len(args) < 2 {
		return resp.Err(fmt.Sprintf("ERR wrong number of arguments for '%s' command", name))
	}
	texts, err := bulkTexts(args)
	if err != nil {
		return resp.Err(err.Error())
	}
	key := texts[0]
	values := make([]store.StoredValue, len(texts)-1)
	for i, t := range texts[1:] {
		values[i] = store.ParseScalar(t)
	}
	n, pushErr := push(key, values)
	if pushErr != nil {
		return resp.Err(pushErr.Error())
	}
	return resp.SimpleString(strconv.Itoa(n))
}

func cmdSave(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 0 {
		return resp.Err("ERR wrong number of arguments for 'save' command")
	}
	if _, err := d.Store.Save(d.DefaultSnapshot); err != nil {
		if d.saveFailed != nil {
			d.saveFailed()
		}
		return resp.Err(err.Error())
	}
	return resp.SimpleString("OK")
}

func cmdLoad(d *Dispatcher, args []resp.Value) resp.Value {
	if len(args) != 1 {
		return resp.Err("ERR wrong number of arguments for 'load' command")
	}
	path, err := bulkText(args[0])
	if err != nil {
		return resp.Err(err.Error())
	}
	if _, err := d.Store.Load(path); err != nil {
		return resp.Err(err.Error())
	}
	return resp.SimpleString("OK")
}

// cmdStats reports process uptime and total/used system memory; it does
// not report keyspace size or process memory.
// It is additive to spec.md's command table (SPEC_FULL.md §4.3) and can
// never fail.
func cmdStats(d *Dispatcher, args []resp.Value) resp.Value {
	var report strings.Builder
	fmt.Fprintf(&report, "uptime_seconds:%d\r\n", int64(time.Since(d.startedAt).Seconds()))

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(&report, "system_memory_total_bytes:%d\r\n", vm.Total)
		fmt.Fprintf(&report, "system_memory_used_bytes:%d\r\n", vm.Used)
	} else {
		fmt.Fprintf(&report, "system_memory_total_bytes:unavailable\r\n")
	}

	return resp.Bulk(report.String())
}
