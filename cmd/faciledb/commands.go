package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	faciledberrors "github.com/Mutationeme/faciledb/pkg/errors"
	"github.com/Mutationeme/faciledb/pkg/faciledb"
)

// valueFlag parses a CLI --type/--value pair into a (bytes, Type) ready for
// a Record or Probe.
type valueFlag struct {
	Type  string `help:"Value type: uint32, int32, uint64, int64, float, double, string." required:""`
	Value string `help:"Value, formatted per --type (decimal for numeric types, raw text for string)." required:""`
}

func parseValueType(s string) (faciledb.Type, error) {
	switch strings.ToLower(s) {
	case "uint32":
		return faciledb.UINT32, nil
	case "int32":
		return faciledb.INT32, nil
	case "uint64":
		return faciledb.UINT64, nil
	case "int64":
		return faciledb.INT64, nil
	case "float":
		return faciledb.FLOAT, nil
	case "double":
		return faciledb.DOUBLE, nil
	case "string":
		return faciledb.STRING, nil
	default:
		return 0, faciledberrors.NewFieldFormatError("type", s, "one of uint32, int32, uint64, int64, float, double, string")
	}
}

func (v valueFlag) encode() ([]byte, faciledb.Type, error) {
	switch strings.ToLower(v.Type) {
	case "uint32":
		n, err := strconv.ParseUint(v.Value, 10, 32)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "decimal uint32")
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(n))
		return buf, faciledb.UINT32, nil
	case "int32":
		n, err := strconv.ParseInt(v.Value, 10, 32)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "decimal int32")
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(n)))
		return buf, faciledb.INT32, nil
	case "uint64":
		n, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "decimal uint64")
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n)
		return buf, faciledb.UINT64, nil
	case "int64":
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "decimal int64")
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(n))
		return buf, faciledb.INT64, nil
	case "float":
		f, err := strconv.ParseFloat(v.Value, 32)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "float32")
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, faciledb.FLOAT, nil
	case "double":
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, 0, faciledberrors.NewFieldFormatError("value", v.Value, "float64")
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		return buf, faciledb.DOUBLE, nil
	case "string":
		return []byte(v.Value), faciledb.STRING, nil
	default:
		return nil, 0, faciledberrors.NewFieldFormatError("type", v.Type, "one of uint32, int32, uint64, int64, float, double, string")
	}
}

type insertCmd struct {
	Set string `help:"Set name." required:""`
	Key string `help:"Record key." required:""`
	valueFlag
}

func (c *insertCmd) Run(db *faciledb.Instance) error {
	value, typ, err := c.encode()
	if err != nil {
		return err
	}
	tag, err := db.Insert(c.Set, faciledb.Record{Key: []byte(c.Key), Value: value, ValueType: typ})
	if err != nil {
		return err
	}
	fmt.Printf("inserted data_tag=%d\n", tag)
	return nil
}

type searchCmd struct {
	Set  string `help:"Set name." required:""`
	Key  string `help:"Probe record key." required:""`
	Mode string `help:"equal or any." default:"equal"`
	valueFlag
}

func (c *searchCmd) Run(db *faciledb.Instance) error {
	value, typ, err := c.encode()
	if err != nil {
		return err
	}

	mode := faciledb.CompareEqual
	if strings.ToLower(c.Mode) == "any" {
		mode = faciledb.CompareAny
	}

	items, err := db.SearchEqual(c.Set, faciledb.Probe{Key: []byte(c.Key), Value: value, ValueType: typ}, mode)
	if err != nil {
		return err
	}

	fmt.Printf("%d matching data item(s)\n", len(items))
	for _, item := range items {
		fmt.Printf("  data_tag=%d start_block=%d records=%d\n", item.Tag, item.StartBlock, len(item.Records))
	}
	return nil
}

type deleteCmd struct {
	Set string `help:"Set name." required:""`
	Key string `help:"Probe record key." required:""`
	valueFlag
}

func (c *deleteCmd) Run(db *faciledb.Instance) error {
	value, typ, err := c.encode()
	if err != nil {
		return err
	}
	n, err := db.DeleteEqual(c.Set, faciledb.Probe{Key: []byte(c.Key), Value: value, ValueType: typ})
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d data item(s)\n", n)
	return nil
}

type indexCmd struct {
	Set  string `help:"Set name." required:""`
	Key  string `help:"Record key to index." required:""`
	Type string `help:"Value type of the records to index." required:""`
}

func (c *indexCmd) Run(db *faciledb.Instance) error {
	typ, err := parseValueType(c.Type)
	if err != nil {
		return err
	}
	if err := db.MakeRecordIndex(c.Set, []byte(c.Key), typ); err != nil {
		return err
	}
	fmt.Println("index ready")
	return nil
}
