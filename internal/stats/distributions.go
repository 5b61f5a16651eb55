package stats

import (
	"math"
	"sort"
)

// Distribution is the closed set of candidate distributions fit per
// column (spec §4.J).
type Distribution int

const (
	Normal Distribution = iota
	LogNormal
	Uniform
	PowerLaw
	Exponential
	Beta
	Gamma
	ChiSquared
	StudentsT
	Poisson
	Bernoulli
	Binomial
	Geometric
	Weibull
)

func (d Distribution) String() string {
	switch d {
	case Normal:
		return "Normal"
	case LogNormal:
		return "LogNormal"
	case Uniform:
		return "Uniform"
	case PowerLaw:
		return "PowerLaw"
	case Exponential:
		return "Exponential"
	case Beta:
		return "Beta"
	case Gamma:
		return "Gamma"
	case ChiSquared:
		return "ChiSquared"
	case StudentsT:
		return "StudentsT"
	case Poisson:
		return "Poisson"
	case Bernoulli:
		return "Bernoulli"
	case Binomial:
		return "Binomial"
	case Geometric:
		return "Geometric"
	case Weibull:
		return "Weibull"
	default:
		return "Unknown"
	}
}

var allDistributions = []Distribution{
	Normal, LogNormal, Uniform, PowerLaw, Exponential, Beta, Gamma,
	ChiSquared, StudentsT, Poisson, Bernoulli, Binomial, Geometric, Weibull,
}

// fitDistribution method-of-moments-fits every candidate distribution,
// scores each with a Kolmogorov-Smirnov goodness-of-fit p-value, and
// picks the highest-scoring candidate whose domain admits the data.
func fitDistribution(name string, values []float64) DistributionFit {
	fit := DistributionFit{Column: name, PValues: map[Distribution]float64{}}
	if len(values) < 2 {
		return fit
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean, std := meanStd(values)
	fit.Skewness = skewness(values, mean, std)
	fit.Kurtosis = kurtosis(values, mean, std)
	fit.OutlierIdx, fit.OutlierPct = outliers(sorted)

	best := Distribution(-1)
	bestP := -1.0
	for _, d := range allDistributions {
		cdf, ok := cdfFor(d, sorted, mean, std)
		if !ok {
			continue
		}
		stat := ksStatistic(sorted, cdf)
		p := ksPValue(stat, len(sorted))
		fit.PValues[d] = p
		if p > bestP {
			bestP = p
			best = d
		}
	}
	if best >= 0 {
		fit.Best = best
	}
	return fit
}

func skewness(values []float64, mean, std float64) float64 {
	n := float64(len(values))
	if std == 0 || n < 3 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Pow((v-mean)/std, 3)
	}
	return (n / ((n - 1) * (n - 2))) * sum
}

func kurtosis(values []float64, mean, std float64) float64 {
	n := float64(len(values))
	if std == 0 || n < 4 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += math.Pow((v-mean)/std, 4)
	}
	term1 := (n * (n + 1)) / ((n - 1) * (n - 2) * (n - 3))
	term2 := (3 * (n - 1) * (n - 1)) / ((n - 2) * (n - 3))
	return term1*sum - term2
}

// outliers flags values beyond 1.5*IQR of [Q1,Q3] (spec §4.J).
func outliers(sorted []float64) ([]int, float64) {
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr
	var idx []int
	for i, v := range sorted {
		if v < lo || v > hi {
			idx = append(idx, i)
		}
	}
	pct := 0.0
	if len(sorted) > 0 {
		pct = float64(len(idx)) / float64(len(sorted)) * 100
	}
	return idx, pct
}

// cdfFor returns a CDF function for distribution d fitted by the method
// of moments to values, or false if d's domain cannot admit the data
// (e.g. Beta requires values in [0,1]).
func cdfFor(d Distribution, sorted []float64, mean, std float64) (func(float64) float64, bool) {
	n := len(sorted)
	min, max := sorted[0], sorted[n-1]

	switch d {
	case Normal:
		if std == 0 {
			return nil, false
		}
		return func(x float64) float64 { return normalCDF(x, mean, std) }, true

	case LogNormal:
		if min <= 0 {
			return nil, false
		}
		logs := make([]float64, n)
		for i, v := range sorted {
			logs[i] = math.Log(v)
		}
		lm, ls := meanStd(logs)
		if ls == 0 {
			return nil, false
		}
		return func(x float64) float64 {
			if x <= 0 {
				return 0
			}
			return normalCDF(math.Log(x), lm, ls)
		}, true

	case Uniform:
		if max == min {
			return nil, false
		}
		return func(x float64) float64 {
			if x <= min {
				return 0
			}
			if x >= max {
				return 1
			}
			return (x - min) / (max - min)
		}, true

	case PowerLaw:
		if min <= 0 {
			return nil, false
		}
		var sumLog float64
		for _, v := range sorted {
			sumLog += math.Log(v / min)
		}
		if sumLog == 0 {
			return nil, false
		}
		alpha := 1 + float64(n)/sumLog
		return func(x float64) float64 {
			if x < min {
				return 0
			}
			return 1 - math.Pow(x/min, -(alpha-1))
		}, true

	case Exponential:
		if min < 0 || mean <= 0 {
			return nil, false
		}
		lambda := 1 / mean
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return 1 - math.Exp(-lambda*x)
		}, true

	case Beta:
		if min < 0 || max > 1 {
			return nil, false
		}
		variance := std * std
		if variance == 0 || mean <= 0 || mean >= 1 {
			return nil, false
		}
		common := mean * (1 - mean) / variance - 1
		a := mean * common
		b := (1 - mean) * common
		if a <= 0 || b <= 0 {
			return nil, false
		}
		return func(x float64) float64 {
			if x <= 0 {
				return 0
			}
			if x >= 1 {
				return 1
			}
			return incompleteBeta(x, a, b)
		}, true

	case Gamma:
		if min < 0 || mean <= 0 || std == 0 {
			return nil, false
		}
		k := (mean * mean) / (std * std)
		theta := (std * std) / mean
		return func(x float64) float64 {
			if x <= 0 {
				return 0
			}
			return lowerIncompleteGammaP(k, x/theta)
		}, true

	case ChiSquared:
		if min < 0 || mean <= 0 {
			return nil, false
		}
		k := mean // method of moments: E[X]=k for chi-squared
		if k <= 0 {
			return nil, false
		}
		return func(x float64) float64 {
			if x <= 0 {
				return 0
			}
			return lowerIncompleteGammaP(k/2, x/2)
		}, true

	case StudentsT:
		if std == 0 {
			return nil, false
		}
		// method of moments: Var = nu/(nu-2) for nu>2
		ratio := (std * std) / (std*std - 1)
		nu := 2 * ratio
		if math.IsNaN(nu) || math.IsInf(nu, 0) || nu <= 2 {
			nu = 5
		}
		return func(x float64) float64 { return studentsTCDF((x-mean)/std, nu) }, true

	case Poisson:
		if min < 0 || mean <= 0 {
			return nil, false
		}
		lambda := mean
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return 1 - lowerIncompleteGammaP(math.Floor(x)+1, lambda)
		}, true

	case Bernoulli:
		if min < 0 || max > 1 {
			return nil, false
		}
		p := mean
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			if x < 1 {
				return 1 - p
			}
			return 1
		}, true

	case Binomial:
		if min < 0 {
			return nil, false
		}
		trials := math.Ceil(max)
		if trials <= 0 {
			return nil, false
		}
		p := mean / trials
		if p <= 0 || p >= 1 {
			return nil, false
		}
		return func(x float64) float64 {
			k := math.Floor(x)
			if k < 0 {
				return 0
			}
			if k >= trials {
				return 1
			}
			return incompleteBeta(1-p, trials-k, k+1)
		}, true

	case Geometric:
		if min < 0 || mean <= 0 {
			return nil, false
		}
		p := 1 / (mean + 1)
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return 1 - math.Pow(1-p, math.Floor(x)+1)
		}, true

	case Weibull:
		if min < 0 || std == 0 {
			return nil, false
		}
		k, lambda := weibullMoments(mean, std)
		if k <= 0 || lambda <= 0 {
			return nil, false
		}
		return func(x float64) float64 {
			if x < 0 {
				return 0
			}
			return 1 - math.Exp(-math.Pow(x/lambda, k))
		}, true
	}
	return nil, false
}

// weibullMoments solves for (k, lambda) via a short Newton iteration on
// the coefficient-of-variation equation, since there is no closed form.
func weibullMoments(mean, std float64) (k, lambda float64) {
	cv := std / mean
	if cv <= 0 || math.IsNaN(cv) {
		return 0, 0
	}
	k = 1.2 / cv // crude initial guess
	if k <= 0 {
		k = 1
	}
	for i := 0; i < 20; i++ {
		g1 := math.Gamma(1 + 1/k)
		g2 := math.Gamma(1 + 2/k)
		f := math.Sqrt(g2-g1*g1) / g1 - cv
		if math.Abs(f) < 1e-6 {
			break
		}
		// numerical derivative
		dk := k * 1e-4
		g1d := math.Gamma(1 + 1/(k+dk))
		g2d := math.Gamma(1 + 2/(k+dk))
		fd := math.Sqrt(g2d-g1d*g1d)/g1d - cv
		deriv := (fd - f) / dk
		if deriv == 0 {
			break
		}
		k -= f / deriv
		if k <= 0 {
			k = 0.1
		}
	}
	lambda = mean / math.Gamma(1+1/k)
	return k, lambda
}

func normalCDF(x, mu, sigma float64) float64 {
	return 0.5 * (1 + math.Erf((x-mu)/(sigma*math.Sqrt2)))
}

func studentsTCDF(t, nu float64) float64 {
	x := nu / (nu + t*t)
	ib := incompleteBeta(x, nu/2, 0.5)
	if t >= 0 {
		return 1 - 0.5*ib
	}
	return 0.5 * ib
}

// ksStatistic is the two-sided Kolmogorov-Smirnov D statistic between
// the empirical CDF of sorted values and cdf.
func ksStatistic(sorted []float64, cdf func(float64) float64) float64 {
	n := float64(len(sorted))
	var d float64
	for i, v := range sorted {
		f := cdf(v)
		d1 := math.Abs(float64(i+1)/n - f)
		d2 := math.Abs(f - float64(i)/n)
		if d1 > d {
			d = d1
		}
		if d2 > d {
			d = d2
		}
	}
	return d
}

// ksPValue is the asymptotic Kolmogorov distribution p-value for
// statistic d over n samples.
func ksPValue(d float64, n int) float64 {
	if n == 0 {
		return 0
	}
	ne := math.Sqrt(float64(n))
	lambda := (ne + 0.12 + 0.11/ne) * d
	if lambda < 0.2 {
		return 1
	}
	var sum float64
	for k := 1; k <= 100; k++ {
		term := 2 * math.Pow(-1, float64(k-1)) * math.Exp(-2*float64(k)*float64(k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
	}
	p := 1 - sum
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// lowerIncompleteGammaP is the regularized lower incomplete gamma
// function P(a, x), via series expansion for x < a+1 and a continued
// fraction otherwise (Numerical Recipes §6.2).
func lowerIncompleteGammaP(a, x float64) float64 {
	if x < 0 || a <= 0 {
		return 0
	}
	if x == 0 {
		return 0
	}
	if x < a+1 {
		return gammaSeries(a, x)
	}
	return 1 - gammaContinuedFraction(a, x)
}

func gammaSeries(a, x float64) float64 {
	gln, _ := math.Lgamma(a)
	if x <= 0 {
		return 0
	}
	ap := a
	sum := 1.0 / a
	del := sum
	for n := 0; n < 200; n++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*1e-12 {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-gln)
}

func gammaContinuedFraction(a, x float64) float64 {
	gln, _ := math.Lgamma(a)
	const fpmin = 1e-300
	b := x + 1 - a
	c := 1 / fpmin
	d := 1 / b
	h := d
	for i := 1; i < 200; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = b + an/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < 1e-12 {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-gln) * h
}

// incompleteBeta is the regularized incomplete beta function I_x(a,b),
// via the continued-fraction form (Numerical Recipes §6.4).
func incompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lbeta, _ := math.Lgamma(a)
	lbetaB, _ := math.Lgamma(b)
	lbetaAB, _ := math.Lgamma(a + b)
	bt := math.Exp(lbetaAB - lbeta - lbetaB + a*math.Log(x) + b*math.Log(1-x))
	if x < (a+1)/(a+b+2) {
		return bt * betaContinuedFraction(x, a, b) / a
	}
	return 1 - bt*betaContinuedFraction(1-x, b, a)/b
}

func betaContinuedFraction(x, a, b float64) float64 {
	const fpmin = 1e-300
	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d
	for m := 1; m < 200; m++ {
		m2 := float64(2 * m)
		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c

		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < 1e-10 {
			break
		}
	}
	return h
}
