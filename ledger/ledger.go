// Package ledger 在 SQLite 中记录每次生成的运行参数和伪造网表。
package ledger

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// 错误定义
var (
	ErrRunNotFound = errors.New("运行记录不存在")
)

// Run 一次生成运行
type Run struct {
	ID          string    // 运行编号
	Started     time.Time // 开始时间
	Source      string    // 原始网表
	Fingerprint string    // 原始网表指纹
	Mode        int       // 修改模式
	Seed        *uint64   // 随机种子,未指定时为 nil
	Fakes       int       // 伪造数量
	IRDropDiff  float64   // 目标压降差异
}

// Fake 一个伪造网表
type Fake struct {
	Run        string  // 运行编号
	Index      int     // 序号
	Mode       int     // 请求的修改模式
	Applied    int     // 实际执行的修改模式
	Difference float64 // 与原始电压的平均差异
	MaxDrop    float64 // 最大压降
	MinDrop    float64 // 最小压降
	MeanDrop   float64 // 平均压降
	Attempts   int     // 修改次数
	Iterations int     // 累计求解迭代次数
	Digest     string  // 网表指纹
	Path       string  // 输出目录
}

// Ledger SQLite 运行记录
type Ledger struct {
	conn *sql.DB
	path string
}

// Open 打开或创建记录数据库
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("设置 pragma 失败: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建数据表失败: %w", err)
	}
	return &Ledger{conn: conn, path: path}, nil
}

// Path 数据库路径
func (l *Ledger) Path() string { return l.path }

// Close 关闭数据库
func (l *Ledger) Close() error { return l.conn.Close() }

// nullFloat NaN 和 Inf 存为 NULL
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// fromNull NULL 读取为 NaN
func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// StartRun 记录一次新的运行,返回的运行编号写入 run.ID
func (l *Ledger) StartRun(run *Run) error {
	run.ID = uuid.NewString()
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	var seed sql.NullInt64
	if run.Seed != nil {
		seed = sql.NullInt64{Int64: int64(*run.Seed), Valid: true}
	}
	_, err := l.conn.Exec(
		`INSERT INTO runs (id, started, source, fingerprint, mode, seed, fakes, ir_drop_diff)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Started.UnixMilli(), run.Source, run.Fingerprint, run.Mode, seed, run.Fakes,
		nullFloat(run.IRDropDiff),
	)
	if err != nil {
		return fmt.Errorf("写入运行记录失败: %w", err)
	}
	return nil
}

// GetRun 读取运行记录
func (l *Ledger) GetRun(id string) (*Run, error) {
	run := &Run{}
	var started int64
	var seed sql.NullInt64
	var diff sql.NullFloat64
	err := l.conn.QueryRow(
		`SELECT id, started, source, fingerprint, mode, seed, fakes, ir_drop_diff FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &started, &run.Source, &run.Fingerprint, &run.Mode, &seed, &run.Fakes, &diff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("读取运行记录失败: %w", err)
	}
	run.Started = time.UnixMilli(started)
	if seed.Valid {
		v := uint64(seed.Int64)
		run.Seed = &v
	}
	run.IRDropDiff = fromNull(diff)
	return run, nil
}

// RecordFake 记录一个伪造网表
func (l *Ledger) RecordFake(fake Fake) error {
	_, err := l.conn.Exec(
		`INSERT INTO fakes (run, idx, mode, applied, difference, max_drop, min_drop, mean_drop,
		 attempts, iterations, digest, path) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fake.Run, fake.Index, fake.Mode, fake.Applied, nullFloat(fake.Difference),
		nullFloat(fake.MaxDrop), nullFloat(fake.MinDrop), nullFloat(fake.MeanDrop),
		fake.Attempts, fake.Iterations, fake.Digest, fake.Path,
	)
	if err != nil {
		return fmt.Errorf("写入伪造记录 %d 失败: %w", fake.Index, err)
	}
	return nil
}

// ListFakes 按序号列出运行的全部伪造网表
func (l *Ledger) ListFakes(run string) ([]Fake, error) {
	rows, err := l.conn.Query(
		`SELECT run, idx, mode, applied, difference, max_drop, min_drop, mean_drop,
		 attempts, iterations, digest, path FROM fakes WHERE run = ? ORDER BY idx`, run,
	)
	if err != nil {
		return nil, fmt.Errorf("查询伪造记录失败: %w", err)
	}
	defer rows.Close()
	var fakes []Fake
	for rows.Next() {
		var fake Fake
		var diff, hi, lo, mean sql.NullFloat64
		if err := rows.Scan(&fake.Run, &fake.Index, &fake.Mode, &fake.Applied, &diff, &hi, &lo, &mean,
			&fake.Attempts, &fake.Iterations, &fake.Digest, &fake.Path); err != nil {
			return nil, fmt.Errorf("读取伪造记录失败: %w", err)
		}
		fake.Difference, fake.MaxDrop, fake.MinDrop, fake.MeanDrop = fromNull(diff), fromNull(hi), fromNull(lo), fromNull(mean)
		fakes = append(fakes, fake)
	}
	return fakes, rows.Err()
}

// FindDigest 查找指纹相同的伪造网表
func (l *Ledger) FindDigest(digest string) ([]Fake, error) {
	rows, err := l.conn.Query(`SELECT run, idx FROM fakes WHERE digest = ? ORDER BY run, idx`, digest)
	if err != nil {
		return nil, fmt.Errorf("查询指纹失败: %w", err)
	}
	defer rows.Close()
	var keys []Fake
	for rows.Next() {
		var key Fake
		if err := rows.Scan(&key.Run, &key.Index); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	var fakes []Fake
	for _, key := range keys {
		list, err := l.ListFakes(key.Run)
		if err != nil {
			return nil, err
		}
		for _, fake := range list {
			if fake.Index == key.Index {
				fakes = append(fakes, fake)
			}
		}
	}
	return fakes, nil
}
