package analysis

// Constructors, one per kind. Mostly used by tests and fixtures.

func String(v string) *Field { return &Field{Type: KindString, ValueString: &v} }

func Number(v float64) *Field { return &Field{Type: KindNumber, ValueNumber: &v} }

func Integer(v int64) *Field { return &Field{Type: KindInteger, ValueInteger: &v} }

func Date(v string) *Field { return &Field{Type: KindDate, ValueDate: &v} }

func Time(v string) *Field { return &Field{Type: KindTime, ValueTime: &v} }

func Phone(v string) *Field { return &Field{Type: KindPhoneNumber, ValuePhoneNumber: &v} }

func CountryRegion(v string) *Field { return &Field{Type: KindCountryRegion, ValueCountryRegion: &v} }

func Currency(amount float64, symbol string) *Field {
	return &Field{Type: KindCurrency, ValueCurrency: &CurrencyValue{Amount: amount, CurrencySymbol: symbol}}
}

func Address(v AddressValue) *Field { return &Field{Type: KindAddress, ValueAddress: &v} }

func Array(elems ...*Field) *Field { return &Field{Type: KindArray, ValueArray: elems} }

func Object(fields Fields) *Field { return &Field{Type: KindObject, ValueObject: fields} }

// WithContent returns a copy of f carrying display text.
func (f *Field) WithContent(content string) *Field {
	if f == nil {
		return &Field{Type: KindString, Content: content}
	}
	c := *f
	c.Content = content
	return &c
}

// Text is a string field known only by its display text.
func Text(content string) *Field { return &Field{Type: KindString, Content: content} }
