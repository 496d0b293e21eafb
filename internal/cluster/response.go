package cluster

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// Response is the JSON shape the model is asked to return. Clusters may be
// split into services/blog or given as one list with a type tag.
type Response struct {
	Services []ResponseCluster `json:"services"`
	Blog     []ResponseCluster `json:"blog"`
	Clusters []ResponseCluster `json:"clusters"`

	// order lists every cluster as it appeared in the decoded document.
	order []typedCluster
}

type typedCluster struct {
	typ     model.ClusterType
	cluster ResponseCluster
}

// UnmarshalJSON decodes the top-level lists and records the order in which
// the model emitted them.
func (r *Response) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "cluster: response")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("cluster: response is not an object")
	}

	*r = Response{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "cluster: response key")
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "cluster: response %q", key)
		}

		var dst *[]ResponseCluster
		var typeOf func(ResponseCluster) model.ClusterType
		switch strings.ToLower(key) {
		case "services":
			dst, typeOf = &r.Services, serviceType
		case "blog":
			dst, typeOf = &r.Blog, blogType
		case "clusters":
			dst, typeOf = &r.Clusters, taggedType
		default:
			continue
		}

		var list []ResponseCluster
		if err := json.Unmarshal(raw, &list); err != nil {
			return eris.Wrapf(err, "cluster: response %q", key)
		}
		*dst = append(*dst, list...)
		for _, rc := range list {
			r.order = append(r.order, typedCluster{typ: typeOf(rc), cluster: rc})
		}
	}
	return nil
}

// ordered returns the clusters in document order. A Response built in code
// has no recorded order and yields services, blog, then tagged clusters.
func (r Response) ordered() []typedCluster {
	if r.order != nil {
		return r.order
	}
	out := make([]typedCluster, 0, len(r.Services)+len(r.Blog)+len(r.Clusters))
	for _, rc := range r.Services {
		out = append(out, typedCluster{typ: model.ClusterTypeService, cluster: rc})
	}
	for _, rc := range r.Blog {
		out = append(out, typedCluster{typ: model.ClusterTypeBlog, cluster: rc})
	}
	for _, rc := range r.Clusters {
		out = append(out, typedCluster{typ: taggedType(rc), cluster: rc})
	}
	return out
}

func serviceType(ResponseCluster) model.ClusterType { return model.ClusterTypeService }

func blogType(ResponseCluster) model.ClusterType { return model.ClusterTypeBlog }

// taggedType reads the type tag of an entry in the combined list, defaulting
// to service.
func taggedType(rc ResponseCluster) model.ClusterType {
	if typ, err := model.ParseClusterType(rc.Type); err == nil {
		return typ
	}
	return model.ClusterTypeService
}

// Empty reports whether the response names no clusters at all.
func (r Response) Empty() bool {
	return len(r.Services) == 0 && len(r.Blog) == 0 && len(r.Clusters) == 0
}

// ResponseCluster is one proposed cluster.
type ResponseCluster struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Keywords []ResponseKeyword `json:"keywords"`
}

// ResponseKeyword is a keyword item, given either as a bare string or as an
// object with a keyword field.
type ResponseKeyword struct {
	Text   string
	Volume int
}

// UnmarshalJSON accepts "text", {"keyword": "text"} and the "text"/"name"
// aliases models sometimes use.
func (k *ResponseKeyword) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		k.Text = strings.TrimSpace(s)
		return nil
	}

	var obj struct {
		Keyword string          `json:"keyword"`
		Text    string          `json:"text"`
		Name    string          `json:"name"`
		Volume  json.RawMessage `json:"volume"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return eris.Wrap(err, "cluster: keyword item")
	}
	for _, v := range []string{obj.Keyword, obj.Text, obj.Name} {
		if strings.TrimSpace(v) != "" {
			k.Text = strings.TrimSpace(v)
			break
		}
	}
	var vol float64
	if len(obj.Volume) > 0 && json.Unmarshal(obj.Volume, &vol) == nil && vol > 0 {
		k.Volume = int(vol)
	}
	return nil
}
