package od

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

var matchIdxRegExp = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
var matchSubidxRegExp = regexp.MustCompile(`^([0-9A-Fa-f]{4})[sS]ub([0-9A-Fa-f]+)$`)

// Parse an EDS file
// file can be either a path or an *os.File or []byte
// Only VAR entries and sub entries of ARRAY / RECORD objects are loaded,
// "$NODEID" default values are resolved against nodeId
func Parse(file any, nodeId uint8) (*ObjectDictionary, error) {
	od := NewOD()
	// Load .ini format
	edsFile, err := ini.Load(file)
	if err != nil {
		return nil, err
	}

	for _, section := range edsFile.Sections() {
		sectionName := section.Name()

		// Match indexes, only VAR & DOMAIN hold a value directly
		if matchIdxRegExp.MatchString(sectionName) {
			idx, err := strconv.ParseUint(sectionName, 16, 16)
			if err != nil {
				return nil, err
			}
			objType, err := strconv.ParseUint(section.Key("ObjectType").Value(), 0, 8)
			objectType := uint8(objType)
			// If no object type, default to 7 (CiA spec)
			if err != nil {
				objectType = ObjectTypeVAR
			}
			switch objectType {
			case ObjectTypeVAR, ObjectTypeDOMAIN:
				if err := od.addSection(section, nodeId, uint16(idx), 0); err != nil {
					return nil, err
				}
			case ObjectTypeARRAY, ObjectTypeRECORD:
				// Sub entries are added from their own sections
			default:
				return nil, fmt.Errorf("[OD] unknown object type whilst parsing EDS %v", objType)
			}
		}

		// Match subindexes e.g. 1018sub1
		if matches := matchSubidxRegExp.FindStringSubmatch(sectionName); matches != nil {
			idx, err := strconv.ParseUint(matches[1], 16, 16)
			if err != nil {
				return nil, err
			}
			sidx, err := strconv.ParseUint(matches[2], 16, 8)
			if err != nil {
				return nil, err
			}
			if err := od.addSection(section, nodeId, uint16(idx), uint8(sidx)); err != nil {
				return nil, err
			}
		}
	}
	log.Debugf("[OD] parsed EDS with %v entries", len(od.variables))
	return od, nil
}

func (od *ObjectDictionary) addSection(section *ini.Section, nodeId uint8, index uint16, subindex uint8) error {
	name := section.Key("ParameterName").String()
	dataType, err := strconv.ParseUint(section.Key("DataType").Value(), 0, 8)
	if err != nil {
		return fmt.Errorf("[OD] x%x|x%x invalid datatype : %v", index, subindex, err)
	}
	accessType := strings.ToLower(section.Key("AccessType").String())
	value := resolveNodeId(section.Key("DefaultValue").String(), nodeId)
	_, err = od.AddVariableType(index, subindex, name, uint8(dataType), EncodeAttribute(accessType, uint8(dataType)), value)
	if err != nil {
		return fmt.Errorf("[OD] x%x|x%x invalid default value %q : %v", index, subindex, value, err)
	}
	return nil
}

// Replace "$NODEID+x" expressions by their numeric value
func resolveNodeId(value string, nodeId uint8) string {
	if !strings.Contains(strings.ToUpper(value), "$NODEID") {
		return value
	}
	upper := strings.ToUpper(strings.ReplaceAll(value, " ", ""))
	upper = strings.ReplaceAll(upper, "$NODEID", "")
	upper = strings.Trim(upper, "+")
	if upper == "" {
		return strconv.Itoa(int(nodeId))
	}
	offset, err := strconv.ParseUint(upper, 0, 64)
	if err != nil {
		return value
	}
	return strconv.FormatUint(offset+uint64(nodeId), 10)
}
